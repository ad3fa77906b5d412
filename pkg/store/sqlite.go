package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"markfleet/pkg/db"
	"markfleet/pkg/geo"
	"markfleet/pkg/model"
)

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Course ---

func (s *SQLiteStore) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, wind_bearing_deg, created_at FROM course WHERE id = ?`, courseID)

	var c model.Course
	var createdAt sql.NullTime
	if err := row.Scan(&c.ID, &c.Name, &c.WindBearingDeg, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	return &c, nil
}

func (s *SQLiteStore) SaveCourse(ctx context.Context, c *model.Course) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO course (id, name, wind_bearing_deg) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, wind_bearing_deg = excluded.wind_bearing_deg`,
		c.ID, c.Name, c.WindBearingDeg)
	return err
}

func (s *SQLiteStore) SetWindBearing(ctx context.Context, courseID string, deg float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE course SET wind_bearing_deg = ? WHERE id = ?`, geo.NormalizeBearing(deg), courseID)
	if err != nil {
		return err
	}
	return requireRow(res, "course", courseID)
}

// --- Marks ---

func (s *SQLiteStore) ListMarks(ctx context.Context, courseID string) ([]model.Mark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, course_id, role, seq, lat, lng, assigned_buoy_id, gate,
		        gate_width_boat_lengths, boat_length_meters, gate_port_buoy_id, gate_starboard_buoy_id
		 FROM mark WHERE course_id = ? ORDER BY seq`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []model.Mark
	for rows.Next() {
		var m model.Mark
		var assigned, portID, stbdID sql.NullString
		if err := rows.Scan(
			&m.ID, &m.CourseID, &m.Role, &m.Seq, &m.Position.Lat, &m.Position.Lng,
			&assigned, &m.Gate, &m.GateWidthBoatLengths, &m.BoatLengthMeters,
			&portID, &stbdID,
		); err != nil {
			return nil, err
		}
		m.AssignedBuoyID = assigned.String
		m.GatePortBuoyID = portID.String
		m.GateStarboardBuoyID = stbdID.String
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

func (s *SQLiteStore) SaveMark(ctx context.Context, m *model.Mark) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mark (id, course_id, role, seq, lat, lng, assigned_buoy_id, gate,
		                   gate_width_boat_lengths, boat_length_meters, gate_port_buoy_id, gate_starboard_buoy_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   course_id = excluded.course_id, role = excluded.role, seq = excluded.seq,
		   lat = excluded.lat, lng = excluded.lng, assigned_buoy_id = excluded.assigned_buoy_id,
		   gate = excluded.gate, gate_width_boat_lengths = excluded.gate_width_boat_lengths,
		   boat_length_meters = excluded.boat_length_meters,
		   gate_port_buoy_id = excluded.gate_port_buoy_id,
		   gate_starboard_buoy_id = excluded.gate_starboard_buoy_id`,
		m.ID, m.CourseID, m.Role, m.Seq, m.Position.Lat, m.Position.Lng,
		nullable(m.AssignedBuoyID), m.Gate, m.GateWidthBoatLengths, m.BoatLengthMeters,
		nullable(m.GatePortBuoyID), nullable(m.GateStarboardBuoyID))
	return err
}

func (s *SQLiteStore) SetMarkPosition(ctx context.Context, markID string, pos geo.Point) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mark SET lat = ?, lng = ? WHERE id = ?`, pos.Lat, pos.Lng, markID)
	if err != nil {
		return err
	}
	return requireRow(res, "mark", markID)
}

// --- Buoys ---

func (s *SQLiteStore) ListBuoys(ctx context.Context) ([]model.Buoy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, state, lat, lng, battery_pct, signal_pct, water_temp_c, last_seen
		 FROM buoy ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buoys []model.Buoy
	for rows.Next() {
		var b model.Buoy
		var lastSeen sql.NullTime
		if err := rows.Scan(
			&b.ID, &b.Name, &b.State, &b.Position.Lat, &b.Position.Lng,
			&b.BatteryPct, &b.SignalPct, &b.WaterTempC, &lastSeen,
		); err != nil {
			return nil, err
		}
		if lastSeen.Valid {
			b.LastSeen = lastSeen.Time
		}
		buoys = append(buoys, b)
	}
	return buoys, rows.Err()
}

func (s *SQLiteStore) SaveBuoy(ctx context.Context, b *model.Buoy) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO buoy (id, name, state, lat, lng, battery_pct, signal_pct, water_temp_c, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, state = excluded.state,
		   lat = excluded.lat, lng = excluded.lng,
		   battery_pct = excluded.battery_pct, signal_pct = excluded.signal_pct,
		   water_temp_c = excluded.water_temp_c, last_seen = excluded.last_seen`,
		b.ID, b.Name, b.State, b.Position.Lat, b.Position.Lng,
		b.BatteryPct, b.SignalPct, b.WaterTempC, b.LastSeen)
	return err
}

// --- Assignments ---

func (s *SQLiteStore) AssignBuoy(ctx context.Context, markID string, slot model.SlotKind, buoyID string) error {
	col, err := slotColumn(slot)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE mark SET `+col+` = ? WHERE id = ?`, buoyID, markID)
	if err != nil {
		return err
	}
	return requireRow(res, "mark", markID)
}

func (s *SQLiteStore) ClearAssignment(ctx context.Context, markID string, slot model.SlotKind) error {
	col, err := slotColumn(slot)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE mark SET `+col+` = NULL WHERE id = ?`, markID)
	if err != nil {
		return err
	}
	return requireRow(res, "mark", markID)
}

func slotColumn(slot model.SlotKind) (string, error) {
	switch slot {
	case model.SlotRegular:
		return "assigned_buoy_id", nil
	case model.SlotPort:
		return "gate_port_buoy_id", nil
	case model.SlotStarboard:
		return "gate_starboard_buoy_id", nil
	default:
		return "", fmt.Errorf("unknown slot kind %q", slot)
	}
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
