// Package catalog keeps an index of finished runs in a SQLite database, so a
// batch output directory can be queried without re-reading every CSV.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RunRecord is one finished run.
type RunRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Scenario    string  `gorm:"type:varchar(200);not null;index" json:"scenario"`
	Soil        string  `gorm:"type:varchar(100)" json:"soil"`
	Engine      string  `gorm:"type:varchar(50)" json:"engine"`
	Policy      string  `gorm:"type:varchar(20)" json:"policy"`
	FrequencyHz float64 `json:"frequency_hz"`
	Amplitude   float64 `json:"amplitude"`
	Seed        uint64  `json:"seed"`

	State   string  `gorm:"type:varchar(20);index" json:"state"`
	Reason  string  `gorm:"type:varchar(200)" json:"reason"`
	Steps   int     `json:"steps"`
	SimTime float64 `json:"sim_time"`
	Error   string  `gorm:"type:text" json:"error,omitempty"`
	// FilesList holds the exported paths, newline separated.
	FilesList  string `gorm:"type:text" json:"-"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	OutputDir  string `gorm:"type:varchar(500)" json:"output_dir"`
	UploadedTo string `gorm:"type:varchar(500)" json:"uploaded_to,omitempty"`
}

// Files returns the exported paths of the run.
func (r *RunRecord) Files() []string {
	if r.FilesList == "" {
		return nil
	}
	return strings.Split(r.FilesList, "\n")
}

// SetFiles stores the exported paths of the run.
func (r *RunRecord) SetFiles(paths []string) {
	r.FilesList = strings.Join(paths, "\n")
}

// Catalog is a handle on the run database.
type Catalog struct {
	db *gorm.DB
}

// Open opens, creating if needed, the catalog at path and migrates its
// schema.
func Open(path string) (*Catalog, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open run catalog '%s': %w", path, err)
	}
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Save inserts or updates a record.
func (c *Catalog) Save(ctx context.Context, rec *RunRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("run record for %q has no id", rec.Scenario)
	}
	if err := c.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.ID, err)
	}
	return nil
}

// List returns every record, oldest first.
func (c *Catalog) List(ctx context.Context) ([]RunRecord, error) {
	var recs []RunRecord
	if err := c.db.WithContext(ctx).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return recs, nil
}

// ByScenario returns the records of one scenario, oldest first.
func (c *Catalog) ByScenario(ctx context.Context, scenario string) ([]RunRecord, error) {
	var recs []RunRecord
	err := c.db.WithContext(ctx).Where("scenario = ?", scenario).Order("created_at, id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs of %q: %w", scenario, err)
	}
	return recs, nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
