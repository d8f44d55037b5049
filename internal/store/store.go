package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresmejia3/posekit/internal/config"
	"github.com/andresmejia3/posekit/internal/pose"
	"github.com/andresmejia3/posekit/internal/skeleton"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection holding decode runs and their poses.
type Store struct {
	conn *pgx.Conn
}

// Run describes one decode invocation over a source file or stream.
type Run struct {
	ID        uuid.UUID
	Source    string
	SourceID  string
	Mode      string
	Config    config.Config
	CreatedAt time.Time
	PoseCount int
}

// StoredPose is a pose read back from the database with its frame position.
type StoredPose struct {
	FrameIndex int
	PoseIndex  int
	Pose       pose.Pose
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS decode_runs (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			source_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			config JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS poses (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID REFERENCES decode_runs(id) ON DELETE CASCADE,
			frame_index INT NOT NULL,
			pose_index INT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pose_joints (
			pose_id BIGINT REFERENCES poses(id) ON DELETE CASCADE,
			joint SMALLINT NOT NULL,
			x DOUBLE PRECISION NOT NULL,
			y DOUBLE PRECISION NOT NULL,
			grid_row INT NOT NULL,
			grid_col INT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			is_valid BOOLEAN NOT NULL,
			PRIMARY KEY (pose_id, joint)
		);
		CREATE INDEX IF NOT EXISTS poses_run_id_idx ON poses (run_id, frame_index);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// CreateRun registers a decode run and returns its generated ID.
func (s *Store) CreateRun(ctx context.Context, source, sourceID, mode string, cfg config.Config) (uuid.UUID, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	_, err = s.conn.Exec(ctx, `
		INSERT INTO decode_runs (id, source, source_id, mode, config)
		VALUES ($1::uuid, $2, $3, $4, $5::jsonb)
	`, id.String(), source, sourceID, mode, string(cfgJSON))
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// InsertPoses saves every pose decoded from one frame, joints included, in a single transaction.
func (s *Store) InsertPoses(ctx context.Context, runID uuid.UUID, frameIndex int, poses []pose.Pose) error {
	if len(poses) == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, p := range poses {
		var poseID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO poses (run_id, frame_index, pose_index, confidence)
			VALUES ($1::uuid, $2, $3, $4) RETURNING id
		`, runID.String(), frameIndex, i, p.Confidence).Scan(&poseID)
		if err != nil {
			return fmt.Errorf("failed to insert pose %d of frame %d: %w", i, frameIndex, err)
		}

		batch := &pgx.Batch{}
		for _, j := range p.Joints {
			batch.Queue(`
				INSERT INTO pose_joints (pose_id, joint, x, y, grid_row, grid_col, confidence, is_valid)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, poseID, int16(j.Name), j.Position.X, j.Position.Y, j.Cell.Row, j.Cell.Col, j.Confidence, j.IsValid)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert joints of pose %d: %w", poseID, err)
		}
	}

	return tx.Commit(ctx)
}

// ListRuns returns every decode run, newest first, with its pose count.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT r.id::text, r.source, r.source_id, r.mode, r.config::text, r.created_at, COUNT(p.id)
		FROM decode_runs r
		LEFT JOIN poses p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			idStr   string
			cfgJSON string
		)
		if err := rows.Scan(&idStr, &r.Source, &r.SourceID, &r.Mode, &cfgJSON, &r.CreatedAt, &r.PoseCount); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
			return nil, fmt.Errorf("run %s has malformed config: %w", idStr, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunPoses loads every pose of a run ordered by frame, then pose index.
func (s *Store) GetRunPoses(ctx context.Context, runID uuid.UUID) ([]StoredPose, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT p.id, p.frame_index, p.pose_index, p.confidence,
		       j.joint, j.x, j.y, j.grid_row, j.grid_col, j.confidence, j.is_valid
		FROM poses p
		JOIN pose_joints j ON j.pose_id = p.id
		WHERE p.run_id = $1::uuid
		ORDER BY p.frame_index, p.pose_index, j.joint
	`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out    []StoredPose
		lastID int64 = -1
	)
	for rows.Next() {
		var (
			poseID int64
			sp     StoredPose
			joint  int16
			j      pose.Joint
		)
		if err := rows.Scan(&poseID, &sp.FrameIndex, &sp.PoseIndex, &sp.Pose.Confidence,
			&joint, &j.Position.X, &j.Position.Y, &j.Cell.Row, &j.Cell.Col, &j.Confidence, &j.IsValid); err != nil {
			return nil, err
		}
		if joint < 0 || int(joint) >= skeleton.NumJoints {
			return nil, fmt.Errorf("pose %d has unknown joint %d", poseID, joint)
		}
		if poseID != lastID {
			sp.Pose.Joints = pose.New().Joints
			out = append(out, sp)
			lastID = poseID
		}
		j.Name = skeleton.Joint(joint)
		out[len(out)-1].Pose.Joints[joint] = j
	}
	return out, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS pose_joints CASCADE;
		DROP TABLE IF EXISTS poses CASCADE;
		DROP TABLE IF EXISTS decode_runs CASCADE;
	`)
	return err
}
