// Package sqlite implements the storage backend on a local SQLite database
// via gorm.
package sqlite

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldpath/planner/internal/model"
	"github.com/fieldpath/planner/internal/session"
)

// ErrNotFound is returned when no trajectory with the requested name is
// stored.
var ErrNotFound = errors.New("trajectory not found")

// TrajectoryRecord is the root row for a saved trajectory.
type TrajectoryRecord struct {
	gorm.Model
	Name   string `gorm:"uniqueIndex"`
	StartX float64
	StartY float64
	StartH float64
}

// WaypointRecord is one ordered waypoint of a trajectory.
type WaypointRecord struct {
	gorm.Model
	TrajectoryID uint `gorm:"index"`
	Seq          int
	Kind         string
	X            float64
	Y            float64
	H            float64
	Speed        float64
	ControlX     *float64
	ControlY     *float64
	MarkerRef    uint
}

// MarkerRecord is one registry marker of a trajectory.
type MarkerRecord struct {
	gorm.Model
	TrajectoryID uint `gorm:"index"`
	MarkerID     uint
	X            float64
	Y            float64
	Name         string
	Args         string
}

// Store persists trajectories to a SQLite file.
type Store struct {
	db *gorm.DB
}

// New opens (creating if needed) the database at path and migrates the
// schema.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite file path not set")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&TrajectoryRecord{}, &WaypointRecord{}, &MarkerRecord{}); err != nil {
		return nil, fmt.Errorf("error migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveTrajectory stores the session under name, replacing any previous
// trajectory with that name.
func (st *Store) SaveTrajectory(name string, s *session.Session) error {
	return st.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteByName(tx, name); err != nil {
			return err
		}

		rec := TrajectoryRecord{
			Name:   name,
			StartX: s.Path.Start.X,
			StartY: s.Path.Start.Y,
			StartH: s.Path.Start.H,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("error creating trajectory record: %w", err)
		}

		for i, wp := range s.Path.Waypoints {
			wr := WaypointRecord{
				TrajectoryID: rec.ID,
				Seq:          i,
				Kind:         string(wp.Kind),
				X:            wp.X,
				Y:            wp.Y,
				H:            wp.H,
				Speed:        wp.Speed,
				MarkerRef:    wp.MarkerID,
			}
			if wp.Control != nil {
				cx, cy := wp.Control.X, wp.Control.Y
				wr.ControlX, wr.ControlY = &cx, &cy
			}
			if err := tx.Create(&wr).Error; err != nil {
				return fmt.Errorf("error creating waypoint record: %w", err)
			}
		}

		for _, m := range s.Markers {
			mr := MarkerRecord{
				TrajectoryID: rec.ID,
				MarkerID:     m.ID,
				X:            m.X,
				Y:            m.Y,
				Name:         m.Name,
				Args:         m.Args,
			}
			if err := tx.Create(&mr).Error; err != nil {
				return fmt.Errorf("error creating marker record: %w", err)
			}
		}
		return nil
	})
}

// LoadTrajectory rebuilds a session from the stored rows.
func (st *Store) LoadTrajectory(name string) (*session.Session, error) {
	var rec TrajectoryRecord
	err := st.db.Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading trajectory: %w", err)
	}

	var wps []WaypointRecord
	if err := st.db.Where("trajectory_id = ?", rec.ID).Order("seq").Find(&wps).Error; err != nil {
		return nil, fmt.Errorf("error loading waypoints: %w", err)
	}
	var mks []MarkerRecord
	if err := st.db.Where("trajectory_id = ?", rec.ID).Find(&mks).Error; err != nil {
		return nil, fmt.Errorf("error loading markers: %w", err)
	}

	path := model.Path{
		Start:     model.Pose{X: rec.StartX, Y: rec.StartY, H: rec.StartH},
		Waypoints: make([]model.Waypoint, 0, len(wps)),
	}
	for _, wr := range wps {
		wp := model.Waypoint{
			Pose:     model.Pose{X: wr.X, Y: wr.Y, H: wr.H},
			Kind:     model.Kind(wr.Kind),
			Speed:    wr.Speed,
			MarkerID: wr.MarkerRef,
		}
		if wr.ControlX != nil && wr.ControlY != nil {
			wp.Control = &geom.XY{X: *wr.ControlX, Y: *wr.ControlY}
		}
		path.Waypoints = append(path.Waypoints, wp)
	}

	markers := make([]model.Marker, 0, len(mks))
	for _, mr := range mks {
		markers = append(markers, model.Marker{
			ID:   mr.MarkerID,
			X:    mr.X,
			Y:    mr.Y,
			Name: mr.Name,
			Args: mr.Args,
		})
	}

	return session.Restore(path, markers), nil
}

// List returns the stored trajectory names ordered by name.
func (st *Store) List() ([]string, error) {
	var names []string
	if err := st.db.Model(&TrajectoryRecord{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("error listing trajectories: %w", err)
	}
	return names, nil
}

// Close closes the underlying database connection.
func (st *Store) Close() error {
	sqlDB, err := st.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func deleteByName(tx *gorm.DB, name string) error {
	var existing TrajectoryRecord
	err := tx.Where("name = ?", name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error checking existing trajectory: %w", err)
	}
	if err := tx.Unscoped().Where("trajectory_id = ?", existing.ID).Delete(&WaypointRecord{}).Error; err != nil {
		return fmt.Errorf("error deleting waypoints: %w", err)
	}
	if err := tx.Unscoped().Where("trajectory_id = ?", existing.ID).Delete(&MarkerRecord{}).Error; err != nil {
		return fmt.Errorf("error deleting markers: %w", err)
	}
	if err := tx.Unscoped().Delete(&existing).Error; err != nil {
		return fmt.Errorf("error deleting trajectory: %w", err)
	}
	return nil
}
