package ccb

// The CCB API wraps every answer in <ccb_api><response>...</response></ccb_api>.

type apiErrors struct {
	Errors []struct {
		Message string `xml:",chardata"`
	} `xml:"error"`
}

type namedRef struct {
	ID   string `xml:"id,attr"`
	Name string `xml:",chardata"`
}

type groupProfilesResponse struct {
	Response struct {
		Errors *apiErrors `xml:"errors"`
		Groups struct {
			Count  int     `xml:"count,attr"`
			Groups []group `xml:"group"`
		} `xml:"groups"`
	} `xml:"response"`
}

type group struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Image       string `xml:"image"`
	MainLeader  struct {
		ID       string `xml:"id,attr"`
		FullName string `xml:"full_name"`
		Email    string `xml:"email"`
	} `xml:"main_leader"`
	Inactive          string   `xml:"inactive"`
	GroupType         namedRef `xml:"group_type"`
	Department        namedRef `xml:"department"`
	MeetingDay        namedRef `xml:"meeting_day"`
	MeetingTime       namedRef `xml:"meeting_time"`
	MembershipType    namedRef `xml:"membership_type"`
	ChildcareProvided string   `xml:"childcare_provided"`
	InteractionType   string   `xml:"interaction_type"`
	Addresses         struct {
		Addresses []address `xml:"address"`
	} `xml:"addresses"`
}

type address struct {
	City  string `xml:"city"`
	State string `xml:"state"`
	Zip   string `xml:"zip"`
}

type eventProfilesResponse struct {
	Response struct {
		Errors *apiErrors `xml:"errors"`
		Events struct {
			Count  int     `xml:"count,attr"`
			Events []event `xml:"event"`
		} `xml:"events"`
	} `xml:"response"`
}

type event struct {
	ID                    string   `xml:"id,attr"`
	Name                  string   `xml:"name"`
	Description           string   `xml:"description"`
	StartDatetime         string   `xml:"start_datetime"`
	EndDatetime           string   `xml:"end_datetime"`
	Location              namedRef `xml:"location"`
	RecurrenceDescription string   `xml:"recurrence_description"`
	Image                 string   `xml:"image"`
}
