package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"zaypos/backend/internal/domain"
	"zaypos/backend/internal/store"
	"zaypos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, buy_price, sell_price, stock, COALESCE(image_url, ''), is_deleted
		FROM products
		WHERE is_deleted = false
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.BuyPrice, &p.SellPrice, &p.Stock, &p.ImageURL, &p.IsDeleted); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, buy_price, sell_price, stock, COALESCE(image_url, ''), is_deleted
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.BuyPrice, &p.SellPrice, &p.Stock, &p.ImageURL, &p.IsDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpsertProduct(ctx context.Context, req domain.ProductUpsertRequest) (*domain.Product, error) {
	if req.ID == "" {
		return s.insertProduct(ctx, req)
	}
	return s.updateProduct(ctx, req)
}

func (s *Store) insertProduct(ctx context.Context, req domain.ProductUpsertRequest) (*domain.Product, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, store.ErrValidation
	}
	if req.SellPrice == nil || *req.SellPrice < 1 {
		return nil, store.ErrValidation
	}

	p := domain.Product{
		ID:        xid.New("prod"),
		Name:      strings.TrimSpace(*req.Name),
		SellPrice: *req.SellPrice,
	}
	if req.BuyPrice != nil {
		if *req.BuyPrice < 0 {
			return nil, store.ErrValidation
		}
		p.BuyPrice = *req.BuyPrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, store.ErrValidation
		}
		p.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*req.ImageURL)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, buy_price, sell_price, stock, image_url, is_deleted, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,false,now(),now())
	`, p.ID, p.Name, p.BuyPrice, p.SellPrice, p.Stock, nullIfEmpty(p.ImageURL))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) updateProduct(ctx context.Context, req domain.ProductUpsertRequest) (*domain.Product, error) {
	existing, err := s.GetProduct(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, store.ErrValidation
		}
		updated.Name = name
	}
	if req.SellPrice != nil {
		if *req.SellPrice < 1 {
			return nil, store.ErrValidation
		}
		updated.SellPrice = *req.SellPrice
	}
	if req.BuyPrice != nil {
		if *req.BuyPrice < 0 {
			return nil, store.ErrValidation
		}
		updated.BuyPrice = *req.BuyPrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, store.ErrValidation
		}
		updated.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		updated.ImageURL = strings.TrimSpace(*req.ImageURL)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, buy_price = $3, sell_price = $4, stock = $5, image_url = $6, updated_at = now()
		WHERE id = $1
	`, updated.ID, updated.Name, updated.BuyPrice, updated.SellPrice, updated.Stock, nullIfEmpty(updated.ImageURL))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return &updated, nil
}

func (s *Store) SoftDeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET is_deleted = true, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DecrementStock applies the whole batch in one transaction. The conditional
// WHERE stock >= qty makes the decrement atomic per line; any line that
// cannot be satisfied rolls back everything.
func (s *Store) DecrementStock(ctx context.Context, lines []domain.StockDecrement) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, line := range lines {
		if line.Qty < 1 {
			return store.ErrValidation
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2
		`, line.ProductID, line.Qty)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrInsufficientStock
		}
	}

	return tx.Commit()
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}
	if sale.Change > 0 && sale.ChangeChannel != domain.ChangeViaCash && sale.ChangeChannel != domain.ChangeViaKPay {
		return nil, store.ErrValidation
	}
	if sale.Change == 0 && sale.ChangeChannel != "" {
		return nil, store.ErrValidation
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, total, profit, payment_type, cash_amount, kpay_amount,
			cash_received, kpay_received, change_amount, change_method, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sale.ID, sale.Total, sale.Profit, string(sale.PaymentType), sale.NetCash, sale.NetKPay,
		sale.CashReceived, sale.KPayReceived, sale.Change, nullIfEmpty(string(sale.ChangeChannel)), sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	items := make([]domain.SaleItem, len(sale.Items))
	for i, item := range sale.Items {
		if item.ProductID == "" || item.Qty < 1 {
			return nil, store.ErrValidation
		}
		items[i] = item
		items[i].ID = xid.New("item")
		items[i].SaleID = sale.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, qty, price)
			VALUES ($1,$2,$3,$4,$5)
		`, items[i].ID, sale.ID, item.ProductID, item.Qty, item.Price)
		if err != nil {
			return nil, err
		}
	}
	sale.Items = items

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, from, to *time.Time) ([]domain.Sale, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, total, profit, payment_type, cash_amount, kpay_amount,
		       cash_received, kpay_received, change_amount, COALESCE(change_method, ''), created_at
		FROM sales
	`)
	args := make([]any, 0, 2)
	conds := make([]string, 0, 2)
	if from != nil {
		args = append(args, from.UTC())
		conds = append(conds, "created_at >= $1")
	}
	if to != nil {
		args = append(args, to.UTC())
		if len(args) == 2 {
			conds = append(conds, "created_at <= $2")
		} else {
			conds = append(conds, "created_at <= $1")
		}
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	ids := make([]string, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		var paymentType, changeMethod string
		if err := rows.Scan(&sale.ID, &sale.Total, &sale.Profit, &paymentType, &sale.NetCash, &sale.NetKPay,
			&sale.CashReceived, &sale.KPayReceived, &sale.Change, &changeMethod, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.PaymentType = domain.PaymentType(paymentType)
		sale.ChangeChannel = domain.ChangeChannel(changeMethod)
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return sales, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.product_id, COALESCE(p.name, ''), si.qty, si.price
		FROM sale_items si
		LEFT JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = ANY($1)
		ORDER BY si.id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	itemsBySale := make(map[string][]domain.SaleItem, len(ids))
	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Qty, &item.Price); err != nil {
			return nil, err
		}
		itemsBySale[item.SaleID] = append(itemsBySale[item.SaleID], item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		sales[i].Items = itemsBySale[sales[i].ID]
	}

	return sales, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrValidation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrValidation
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
