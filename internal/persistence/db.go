// Package persistence saves and restores world snapshots in SQLite.
// Saves are full-replace: each table is cleared and rewritten inside one
// transaction, so a snapshot is always internally consistent.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/ecs"
	"github.com/vantagegames/magnate/internal/sim"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS world_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
	entity INTEGER PRIMARY KEY,
	x      INTEGER NOT NULL,
	y      INTEGER NOT NULL,
	data   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS companies (
	entity   INTEGER PRIMARY KEY,
	data     TEXT NOT NULL,
	finances TEXT NOT NULL,
	stock    TEXT NOT NULL,
	ledger   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS buildings (
	entity    INTEGER PRIMARY KEY,
	x         INTEGER NOT NULL,
	y         INTEGER NOT NULL,
	data      TEXT NOT NULL,
	factory   TEXT,
	retail    TEXT,
	inventory TEXT,
	warehouse TEXT,
	research  TEXT,
	marketing TEXT,
	supply    TEXT,
	staffing  TEXT,
	strike    TEXT
);
CREATE INDEX IF NOT EXISTS idx_buildings_xy ON buildings(x, y);

CREATE TABLE IF NOT EXISTS brands (
	company INTEGER NOT NULL,
	product INTEGER NOT NULL,
	data    TEXT NOT NULL,
	PRIMARY KEY (company, product)
);

CREATE TABLE IF NOT EXISTS tech_levels (
	company INTEGER NOT NULL,
	product INTEGER NOT NULL,
	level   INTEGER NOT NULL,
	PRIMARY KEY (company, product)
);

CREATE TABLE IF NOT EXISTS tech_alerts (
	company     INTEGER NOT NULL,
	product     INTEGER NOT NULL,
	gap         INTEGER NOT NULL,
	raised_tick INTEGER NOT NULL,
	PRIMARY KEY (company, product)
);

CREATE TABLE IF NOT EXISTS news (
	ord      INTEGER PRIMARY KEY,
	tick     INTEGER NOT NULL,
	category TEXT NOT NULL,
	text     TEXT NOT NULL
);
`
	_, err := db.conn.Exec(schema)
	return err
}

// HasWorldState reports whether a snapshot exists to resume from.
func (db *DB) HasWorldState() bool {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM world_meta WHERE key = 'tick'"); err != nil {
		return false
	}
	return n > 0
}

// SaveMeta stores a key/value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetMeta retrieves a metadata value by key.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorld writes a complete snapshot of the world.
func (db *DB) SaveWorld(w *sim.World) error {
	start := time.Now()

	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if err := saveCities(tx, w); err != nil {
		return fmt.Errorf("save cities: %w", err)
	}
	if err := saveCompanies(tx, w); err != nil {
		return fmt.Errorf("save companies: %w", err)
	}
	if err := saveBuildings(tx, w); err != nil {
		return fmt.Errorf("save buildings: %w", err)
	}
	if err := saveBrands(tx, w); err != nil {
		return fmt.Errorf("save brands: %w", err)
	}
	if err := saveTech(tx, w); err != nil {
		return fmt.Errorf("save tech: %w", err)
	}
	if err := saveNews(tx, w); err != nil {
		return fmt.Errorf("save news: %w", err)
	}

	meta := map[string]string{
		"tick":        strconv.FormatUint(w.Tick, 10),
		"fuel_price":  strconv.FormatFloat(w.FuelPrice, 'g', -1, 64),
		"snapshot_id": uuid.NewString(),
		"saved_at":    time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	slog.Info("world snapshot saved",
		"tick", w.Tick,
		"companies", len(w.CompanyList),
		"cities", len(w.CityList),
		"buildings", w.Buildings.Len(),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func saveCities(tx *sqlx.Tx, w *sim.World) error {
	if _, err := tx.Exec("DELETE FROM cities"); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO cities (entity, x, y, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range w.CityList {
		city := w.Cities.Get(e)
		pos := w.Positions.Get(e)
		if city == nil || pos == nil {
			continue
		}
		data, err := json.Marshal(city)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(int64(e), pos.X, pos.Y, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func saveCompanies(tx *sqlx.Tx, w *sim.World) error {
	if _, err := tx.Exec("DELETE FROM companies"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(
		"INSERT INTO companies (entity, data, finances, stock, ledger) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range w.CompanyList {
		co := w.Companies.Get(e)
		fin := w.Finances.Get(e)
		st := w.Stocks.Get(e)
		if co == nil || fin == nil || st == nil {
			continue
		}
		coJSON, err := json.Marshal(co)
		if err != nil {
			return err
		}
		finJSON, err := json.Marshal(fin)
		if err != nil {
			return err
		}
		stJSON, err := json.Marshal(st)
		if err != nil {
			return err
		}
		ledJSON, err := json.Marshal(w.Ledger(e))
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(int64(e), string(coJSON), string(finJSON), string(stJSON), string(ledJSON)); err != nil {
			return err
		}
	}
	return nil
}

// marshalIf returns NULL for absent companion components.
func marshalIf[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func saveBuildings(tx *sqlx.Tx, w *sim.World) error {
	if _, err := tx.Exec("DELETE FROM buildings"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO buildings
		(entity, x, y, data, factory, retail, inventory, warehouse, research, marketing, supply, staffing, strike)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var saveErr error
	w.Buildings.Each(func(e ecs.Entity, b *sim.Building) {
		if saveErr != nil {
			return
		}
		pos := w.Positions.Get(e)
		if pos == nil {
			return
		}
		data, err := json.Marshal(b)
		if err != nil {
			saveErr = err
			return
		}
		cols := make([]any, 0, 13)
		cols = append(cols, int64(e), pos.X, pos.Y, string(data))
		for _, companion := range []func() (any, error){
			func() (any, error) { return marshalIf(w.Factories.Get(e)) },
			func() (any, error) { return marshalIf(w.Retail.Get(e)) },
			func() (any, error) { return marshalIf(w.Inventories.Get(e)) },
			func() (any, error) { return marshalIf(w.Warehouses.Get(e)) },
			func() (any, error) { return marshalIf(w.Research.Get(e)) },
			func() (any, error) { return marshalIf(w.Marketing.Get(e)) },
			func() (any, error) { return marshalIf(w.Supply.Get(e)) },
			func() (any, error) { return marshalIf(w.Staffing.Get(e)) },
			func() (any, error) { return marshalIf(w.Strikes.Get(e)) },
		} {
			v, err := companion()
			if err != nil {
				saveErr = err
				return
			}
			cols = append(cols, v)
		}
		if _, err := stmt.Exec(cols...); err != nil {
			saveErr = err
		}
	})
	return saveErr
}

func saveBrands(tx *sqlx.Tx, w *sim.World) error {
	if _, err := tx.Exec("DELETE FROM brands"); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO brands (company, product, data) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, key := range w.BrandKeys() {
		data, err := json.Marshal(w.Brands[key])
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(int64(key.Company), key.Product, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func saveTech(tx *sqlx.Tx, w *sim.World) error {
	if _, err := tx.Exec("DELETE FROM tech_levels"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM tech_alerts"); err != nil {
		return err
	}
	lvStmt, err := tx.Preparex("INSERT INTO tech_levels (company, product, level) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer lvStmt.Close()
	for key, level := range w.TechLevels {
		if _, err := lvStmt.Exec(int64(key.Company), key.Product, level); err != nil {
			return err
		}
	}

	alStmt, err := tx.Preparex(
		"INSERT INTO tech_alerts (company, product, gap, raised_tick) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer alStmt.Close()
	for key, alert := range w.Alerts {
		if _, err := alStmt.Exec(int64(key.Company), key.Product, alert.Gap, int64(alert.RaisedTick)); err != nil {
			return err
		}
	}
	return nil
}

func saveNews(tx *sqlx.Tx, w *sim.World) error {
	if _, err := tx.Exec("DELETE FROM news"); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO news (ord, tick, category, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range w.News {
		if _, err := stmt.Exec(i, int64(item.Tick), item.Category, item.Text); err != nil {
			return err
		}
	}
	return nil
}

// LoadWorld restores the most recent snapshot. The returned world resumes
// at the saved tick with a fresh RNG stream derived from seed and tick.
func (db *DB) LoadWorld(cat *catalog.Catalog, seed int64) (*sim.World, error) {
	start := time.Now()
	w := sim.NewWorld(cat, seed)

	tickStr, err := db.GetMeta("tick")
	if err != nil {
		return nil, fmt.Errorf("no snapshot to load: %w", err)
	}
	tick, err := strconv.ParseUint(tickStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad tick metadata %q: %w", tickStr, err)
	}
	w.Tick = tick
	w.Reseed(seed + int64(tick))

	if fp, err := db.GetMeta("fuel_price"); err == nil {
		if v, err := strconv.ParseFloat(fp, 64); err == nil {
			w.FuelPrice = v
		}
	}

	if err := db.loadCities(w); err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	if err := db.loadCompanies(w); err != nil {
		return nil, fmt.Errorf("load companies: %w", err)
	}
	if err := db.loadBuildings(w); err != nil {
		return nil, fmt.Errorf("load buildings: %w", err)
	}
	if err := db.loadBrands(w); err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}
	if err := db.loadTech(w); err != nil {
		return nil, fmt.Errorf("load tech: %w", err)
	}
	if err := db.loadNews(w); err != nil {
		return nil, fmt.Errorf("load news: %w", err)
	}

	slog.Info("world snapshot loaded",
		"tick", w.Tick,
		"companies", len(w.CompanyList),
		"cities", len(w.CityList),
		"buildings", w.Buildings.Len(),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return w, nil
}

func (db *DB) loadCities(w *sim.World) error {
	rows, err := db.conn.Queryx("SELECT entity, x, y, data FROM cities ORDER BY entity")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entity int64
			x, y   int
			data   string
		)
		if err := rows.Scan(&entity, &x, &y, &data); err != nil {
			return err
		}
		var city sim.City
		if err := json.Unmarshal([]byte(data), &city); err != nil {
			return err
		}
		e := ecs.Entity(entity)
		w.Registry.Restore(e)
		w.Positions.Set(e, sim.Position{X: x, Y: y})
		w.Cities.Set(e, city)
		w.CityList = append(w.CityList, e)
	}
	return rows.Err()
}

func (db *DB) loadCompanies(w *sim.World) error {
	rows, err := db.conn.Queryx(
		"SELECT entity, data, finances, stock, ledger FROM companies ORDER BY entity")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entity                     int64
			data, finances, stock, led string
		)
		if err := rows.Scan(&entity, &data, &finances, &stock, &led); err != nil {
			return err
		}
		var (
			co  sim.Company
			fin sim.Finances
			st  sim.Stock
			lg  sim.Ledger
		)
		if err := json.Unmarshal([]byte(data), &co); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(finances), &fin); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(stock), &st); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(led), &lg); err != nil {
			return err
		}
		e := ecs.Entity(entity)
		w.Registry.Restore(e)
		w.Companies.Set(e, co)
		w.Finances.Set(e, fin)
		w.Stocks.Set(e, st)
		w.Ledgers[e] = &lg
		w.CompanyList = append(w.CompanyList, e)
	}
	return rows.Err()
}

// unmarshalInto decodes a nullable companion column into its table.
func unmarshalInto[T any](raw sql.NullString, e ecs.Entity, table *ecs.Table[T]) error {
	if !raw.Valid {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw.String), &v); err != nil {
		return err
	}
	table.Set(e, v)
	return nil
}

func (db *DB) loadBuildings(w *sim.World) error {
	rows, err := db.conn.Queryx(`SELECT entity, x, y, data,
		factory, retail, inventory, warehouse, research, marketing, supply, staffing, strike
		FROM buildings ORDER BY entity`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entity int64
			x, y   int
			data   string

			factory, retail, inventory, warehouse sql.NullString
			research, marketing, supply           sql.NullString
			staffing, strike                      sql.NullString
		)
		if err := rows.Scan(&entity, &x, &y, &data,
			&factory, &retail, &inventory, &warehouse,
			&research, &marketing, &supply, &staffing, &strike); err != nil {
			return err
		}
		var b sim.Building
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return err
		}
		e := ecs.Entity(entity)
		w.Registry.Restore(e)
		w.Positions.Set(e, sim.Position{X: x, Y: y})
		w.Buildings.Set(e, b)

		if err := unmarshalInto(factory, e, w.Factories); err != nil {
			return err
		}
		if err := unmarshalInto(retail, e, w.Retail); err != nil {
			return err
		}
		if err := unmarshalInto(inventory, e, w.Inventories); err != nil {
			return err
		}
		if err := unmarshalInto(warehouse, e, w.Warehouses); err != nil {
			return err
		}
		if err := unmarshalInto(research, e, w.Research); err != nil {
			return err
		}
		if err := unmarshalInto(marketing, e, w.Marketing); err != nil {
			return err
		}
		if err := unmarshalInto(supply, e, w.Supply); err != nil {
			return err
		}
		if err := unmarshalInto(staffing, e, w.Staffing); err != nil {
			return err
		}
		if err := unmarshalInto(strike, e, w.Strikes); err != nil {
			return err
		}

		// Rebuild tile occupancy from the stored footprint.
		for dx := 0; dx < b.Size; dx++ {
			for dy := 0; dy < b.Size; dy++ {
				w.Occupied[sim.Position{X: x + dx, Y: y + dy}] = e
			}
		}
	}
	return rows.Err()
}

func (db *DB) loadBrands(w *sim.World) error {
	rows, err := db.conn.Queryx("SELECT company, product, data FROM brands ORDER BY company, product")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			company int64
			product int
			data    string
		)
		if err := rows.Scan(&company, &product, &data); err != nil {
			return err
		}
		var brand sim.ProductBrand
		if err := json.Unmarshal([]byte(data), &brand); err != nil {
			return err
		}
		w.Brands[sim.BrandKey{Company: ecs.Entity(company), Product: product}] = &brand
	}
	return rows.Err()
}

func (db *DB) loadTech(w *sim.World) error {
	rows, err := db.conn.Queryx("SELECT company, product, level FROM tech_levels")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			company        int64
			product, level int
		)
		if err := rows.Scan(&company, &product, &level); err != nil {
			return err
		}
		// SetTechLevel also lifts the frontier back into place.
		w.SetTechLevel(ecs.Entity(company), product, level)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	alerts, err := db.conn.Queryx("SELECT company, product, gap, raised_tick FROM tech_alerts")
	if err != nil {
		return err
	}
	defer alerts.Close()
	for alerts.Next() {
		var (
			company, raisedTick int64
			product, gap        int
		)
		if err := alerts.Scan(&company, &product, &gap, &raisedTick); err != nil {
			return err
		}
		key := sim.TechKey{Company: ecs.Entity(company), Product: product}
		w.Alerts[key] = &sim.TechAlert{
			Company:    key.Company,
			Product:    product,
			Gap:        gap,
			RaisedTick: uint64(raisedTick),
		}
	}
	return alerts.Err()
}

func (db *DB) loadNews(w *sim.World) error {
	rows, err := db.conn.Queryx("SELECT tick, category, text FROM news ORDER BY ord")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var item sim.NewsItem
		if err := rows.Scan(&item.Tick, &item.Category, &item.Text); err != nil {
			return err
		}
		w.News = append(w.News, item)
	}
	return rows.Err()
}
