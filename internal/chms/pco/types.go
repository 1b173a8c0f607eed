package pco

// resource is a JSON:API resource object.
type resource struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes"`
}

type listResponse struct {
	Data []resource `json:"data"`
	Meta struct {
		TotalCount int `json:"total_count"`
		Count      int `json:"count"`
		Next       *struct {
			Offset int `json:"offset"`
		} `json:"next"`
	} `json:"meta"`
}
