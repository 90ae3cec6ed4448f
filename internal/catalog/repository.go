package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// ProductType is the type tag under which Store registers its products.
const ProductType = "product"

//go:embed migrations/*.sql
var migrationsFS embed.FS

type StoredProduct struct {
	ID          int64
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	ImageURL    string
	CreatedAt   time.Time
}

func (p *StoredProduct) Ref() domain.ProductRef {
	return domain.ProductRef{Type: ProductType, PK: strconv.FormatInt(p.ID, 10)}
}

func (p *StoredProduct) Price(domain.ItemRecord) decimal.Decimal {
	return p.UnitPrice
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" would otherwise see its own empty database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) RunMigrations() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]*StoredProduct, error) {
	query := `
		SELECT id, name, description, price, image_url, created_at
		FROM products
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*StoredProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*StoredProduct, error) {
	query := `
		SELECT id, name, description, price, image_url, created_at
		FROM products
		WHERE id = $1
	`

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s:%d", ErrProductNotFound, ProductType, id)
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Resolve is the ResolveFunc registered for ProductType.
func (s *Store) Resolve(ctx context.Context, pk string) (Product, error) {
	id, err := strconv.ParseInt(pk, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed key %q", ErrProductNotFound, pk)
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*StoredProduct, error) {
	p := &StoredProduct{}
	var description, imageURL sql.NullString
	err := row.Scan(
		&p.ID,
		&p.Name,
		&description,
		&p.UnitPrice,
		&imageURL,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	p.Description = description.String
	p.ImageURL = imageURL.String
	return p, nil
}
