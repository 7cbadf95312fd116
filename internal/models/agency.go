package models

const AgencyType = "agency"

// Agency is a government agency together with its FedRAMP usage counters.
type Agency struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Reuses     int      `json:"reuses"`
	Sponsored  int      `json:"sponsored"`
	Authorized int      `json:"authorized"`
	Providers  []string `json:"providers"`
	Products   []string `json:"products"`
	Assessors  []string `json:"assessors"`
}

// AgencyOptions carries caller supplied values for NewAgency. Zero values and
// nil slices leave the corresponding default in place.
type AgencyOptions struct {
	Name       string   `mapstructure:"name"`
	Reuses     int      `mapstructure:"reuses"`
	Sponsored  int      `mapstructure:"sponsored"`
	Authorized int      `mapstructure:"authorized"`
	Providers  []string `mapstructure:"providers"`
	Products   []string `mapstructure:"products"`
	Assessors  []string `mapstructure:"assessors"`
}

// NewAgency returns an agency populated with defaults and then overlays the
// non-zero fields of opts. Type is always "agency".
func NewAgency(opts AgencyOptions) Agency {
	agency := Agency{
		Type:      AgencyType,
		Providers: []string{},
		Products:  []string{},
		Assessors: []string{},
	}
	if opts.Name != "" {
		agency.Name = opts.Name
	}
	if opts.Reuses != 0 {
		agency.Reuses = opts.Reuses
	}
	if opts.Sponsored != 0 {
		agency.Sponsored = opts.Sponsored
	}
	if opts.Authorized != 0 {
		agency.Authorized = opts.Authorized
	}
	if opts.Providers != nil {
		agency.Providers = append([]string{}, opts.Providers...)
	}
	if opts.Products != nil {
		agency.Products = append([]string{}, opts.Products...)
	}
	if opts.Assessors != nil {
		agency.Assessors = append([]string{}, opts.Assessors...)
	}
	return agency
}
