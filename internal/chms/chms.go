// Package chms defines the vendor-neutral contract for pulling records
// out of a church management system. Each supported vendor lives in its
// own subpackage and is selected by the factory at startup.
package chms

import (
	"context"
	"fmt"

	"github.com/cpconnect/chms-sync/internal/chms/ccb"
	"github.com/cpconnect/chms-sync/internal/chms/ministryplatform"
	"github.com/cpconnect/chms-sync/internal/chms/pco"
	"github.com/cpconnect/chms-sync/internal/chms/rockrms"
	"github.com/cpconnect/chms-sync/internal/domain"
)

// Supported vendor identifiers.
const (
	VendorMinistryPlatform = "ministry_platform"
	VendorPCO              = "pco"
	VendorCCB              = "ccb"
	VendorRockRMS          = "rock_rms"
)

// Client pulls raw records from a ChMS vendor API.
type Client interface {
	// Vendor returns the vendor identifier for logging and reports.
	Vendor() string
	// Pull fetches the full current batch for a content type. A pull is
	// always complete; the diff engine decides what actually changed.
	Pull(ctx context.Context, contentType domain.ContentType) ([]domain.RawRecord, error)
	// DiscoverFields lists the source field names the vendor exposes
	// for a content type, for building mapping configuration.
	DiscoverFields(ctx context.Context, contentType domain.ContentType) ([]string, error)
}

// Config selects and configures a vendor client.
type Config struct {
	Vendor           string                  `yaml:"vendor"`
	MinistryPlatform ministryplatform.Config `yaml:"ministry_platform"`
	PCO              pco.Config              `yaml:"pco"`
	CCB              ccb.Config              `yaml:"ccb"`
	RockRMS          rockrms.Config          `yaml:"rock_rms"`
}

// New builds the client for the configured vendor.
func New(cfg Config) (Client, error) {
	switch cfg.Vendor {
	case VendorMinistryPlatform:
		return ministryplatform.NewClient(cfg.MinistryPlatform), nil
	case VendorPCO:
		return pco.NewClient(cfg.PCO), nil
	case VendorCCB:
		return ccb.NewClient(cfg.CCB), nil
	case VendorRockRMS:
		return rockrms.NewClient(cfg.RockRMS), nil
	default:
		return nil, fmt.Errorf("unknown chms vendor %q", cfg.Vendor)
	}
}
