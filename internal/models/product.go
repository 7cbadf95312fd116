package models

// Product is a FedRAMP catalog item. Name is unique within a catalog.
type Product struct {
	Name              string   `json:"name" mapstructure:"name"`
	PackageID         string   `json:"package_id,omitempty" mapstructure:"package_id"`
	Provider          string   `json:"provider,omitempty" mapstructure:"provider"`
	ServiceModels     []string `json:"service_models,omitempty" mapstructure:"service_models"`
	DeploymentModel   string   `json:"deployment_model,omitempty" mapstructure:"deployment_model"`
	ImpactLevel       string   `json:"impact_level,omitempty" mapstructure:"impact_level"`
	Designation       string   `json:"designation,omitempty" mapstructure:"designation"`
	Description       string   `json:"description,omitempty" mapstructure:"description"`
	Website           string   `json:"website,omitempty" mapstructure:"website"`
	AuthorizationDate string   `json:"authorization_date,omitempty" mapstructure:"authorization_date"`
}

// Provider is a cloud service provider and the names of the products it lists.
type Provider struct {
	Name     string            `json:"name" mapstructure:"name"`
	Products []ProviderProduct `json:"products" mapstructure:"products"`
}

type ProviderProduct struct {
	Name string `json:"name" mapstructure:"name"`
}

// ProductNames returns the listed product names in order, duplicates included.
func (p Provider) ProductNames() []string {
	names := make([]string, 0, len(p.Products))
	for _, prod := range p.Products {
		names = append(names, prod.Name)
	}
	return names
}
