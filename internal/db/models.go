package db

type CatalogProvider struct {
	Name         string
	Position     int32
	ProductNames []string
}

type CatalogProduct struct {
	Name              string
	Position          int32
	PackageID         string
	Provider          string
	ServiceModels     []string
	DeploymentModel   string
	ImpactLevel       string
	Designation       string
	Description       string
	Website           string
	AuthorizationDate string
}

type CatalogAgency struct {
	Name       string
	Position   int32
	Reuses     int32
	Sponsored  int32
	Authorized int32
	Providers  []string
	Products   []string
	Assessors  []string
}
