package db

import (
	"context"
)

const listCatalogProviders = `SELECT name, position, product_names
FROM catalog_providers
ORDER BY position, name`

func (q *Queries) ListCatalogProviders(ctx context.Context) ([]CatalogProvider, error) {
	rows, err := q.db.Query(ctx, listCatalogProviders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogProvider
	for rows.Next() {
		var i CatalogProvider
		if err := rows.Scan(&i.Name, &i.Position, &i.ProductNames); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCatalogProducts = `SELECT name, position, package_id, provider, service_models, deployment_model,
       impact_level, designation, description, website, authorization_date
FROM catalog_products
ORDER BY position, name`

func (q *Queries) ListCatalogProducts(ctx context.Context) ([]CatalogProduct, error) {
	rows, err := q.db.Query(ctx, listCatalogProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogProduct
	for rows.Next() {
		var i CatalogProduct
		if err := rows.Scan(
			&i.Name,
			&i.Position,
			&i.PackageID,
			&i.Provider,
			&i.ServiceModels,
			&i.DeploymentModel,
			&i.ImpactLevel,
			&i.Designation,
			&i.Description,
			&i.Website,
			&i.AuthorizationDate,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCatalogAgencies = `SELECT name, position, reuses, sponsored, authorized, providers, products, assessors
FROM catalog_agencies
ORDER BY position, name`

func (q *Queries) ListCatalogAgencies(ctx context.Context) ([]CatalogAgency, error) {
	rows, err := q.db.Query(ctx, listCatalogAgencies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogAgency
	for rows.Next() {
		var i CatalogAgency
		if err := rows.Scan(
			&i.Name,
			&i.Position,
			&i.Reuses,
			&i.Sponsored,
			&i.Authorized,
			&i.Providers,
			&i.Products,
			&i.Assessors,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertCatalogProvider = `INSERT INTO catalog_providers (name, position, product_names)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET position = EXCLUDED.position,
    product_names = EXCLUDED.product_names,
    updated_at = NOW()`

func (q *Queries) UpsertCatalogProvider(ctx context.Context, arg CatalogProvider) error {
	_, err := q.db.Exec(ctx, upsertCatalogProvider, arg.Name, arg.Position, nonNil(arg.ProductNames))
	return err
}

const upsertCatalogProduct = `INSERT INTO catalog_products (
    name, position, package_id, provider, service_models, deployment_model,
    impact_level, designation, description, website, authorization_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (name) DO UPDATE
SET position = EXCLUDED.position,
    package_id = EXCLUDED.package_id,
    provider = EXCLUDED.provider,
    service_models = EXCLUDED.service_models,
    deployment_model = EXCLUDED.deployment_model,
    impact_level = EXCLUDED.impact_level,
    designation = EXCLUDED.designation,
    description = EXCLUDED.description,
    website = EXCLUDED.website,
    authorization_date = EXCLUDED.authorization_date,
    updated_at = NOW()`

func (q *Queries) UpsertCatalogProduct(ctx context.Context, arg CatalogProduct) error {
	_, err := q.db.Exec(ctx, upsertCatalogProduct,
		arg.Name,
		arg.Position,
		arg.PackageID,
		arg.Provider,
		nonNil(arg.ServiceModels),
		arg.DeploymentModel,
		arg.ImpactLevel,
		arg.Designation,
		arg.Description,
		arg.Website,
		arg.AuthorizationDate,
	)
	return err
}

const upsertCatalogAgency = `INSERT INTO catalog_agencies (
    name, position, reuses, sponsored, authorized, providers, products, assessors
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (name) DO UPDATE
SET position = EXCLUDED.position,
    reuses = EXCLUDED.reuses,
    sponsored = EXCLUDED.sponsored,
    authorized = EXCLUDED.authorized,
    providers = EXCLUDED.providers,
    products = EXCLUDED.products,
    assessors = EXCLUDED.assessors,
    updated_at = NOW()`

func (q *Queries) UpsertCatalogAgency(ctx context.Context, arg CatalogAgency) error {
	_, err := q.db.Exec(ctx, upsertCatalogAgency,
		arg.Name,
		arg.Position,
		arg.Reuses,
		arg.Sponsored,
		arg.Authorized,
		nonNil(arg.Providers),
		nonNil(arg.Products),
		nonNil(arg.Assessors),
	)
	return err
}

const deleteCatalogProvidersExcept = `DELETE FROM catalog_providers WHERE name <> ALL($1::text[])`

// DeleteCatalogProvidersExcept removes every provider not named in keep and
// returns the number of deleted rows.
func (q *Queries) DeleteCatalogProvidersExcept(ctx context.Context, keep []string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCatalogProvidersExcept, nonNil(keep))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteCatalogProductsExcept = `DELETE FROM catalog_products WHERE name <> ALL($1::text[])`

func (q *Queries) DeleteCatalogProductsExcept(ctx context.Context, keep []string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCatalogProductsExcept, nonNil(keep))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteCatalogAgenciesExcept = `DELETE FROM catalog_agencies WHERE name <> ALL($1::text[])`

func (q *Queries) DeleteCatalogAgenciesExcept(ctx context.Context, keep []string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCatalogAgenciesExcept, nonNil(keep))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// text[] columns are NOT NULL.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
