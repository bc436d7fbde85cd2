package sqlstorage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/lomoval/notecal/internal/storage"
	log "github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrConnectionFailed = errors.New("failed to connect")

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"

	dbErrUniqueViolation = "23505"
)

func init() {
	sqlx.BindDriver(DriverSqlite, sqlx.QUESTION)
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	// Path is the sqlite database file, ":memory:" keeps it in memory.
	Path string
}

type Storage struct {
	config Config
	db     *sqlx.DB
}

func New(config Config) *Storage {
	if config.Driver == "" {
		config.Driver = DriverPostgres
	}
	return &Storage{config: config}
}

func (s *Storage) Connect(ctx context.Context) error {
	var dsn string
	switch s.config.Driver {
	case DriverPostgres:
		dsn = fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			s.config.Host, s.config.Port, s.config.Database, s.config.Username, s.config.Password)
	case DriverSqlite:
		dsn = s.config.Path
		if dsn == "" {
			dsn = ":memory:"
		}
	default:
		return fmt.Errorf("unknown sql driver %q", s.config.Driver)
	}

	db, err := sqlx.ConnectContext(ctx, s.config.Driver, dsn)
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	if s.config.Driver == DriverSqlite {
		// One connection keeps a ":memory:" database alive and avoids "database is locked".
		db.SetMaxOpenConns(1)
	}
	s.db = db

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Storage) AddNote(ctx context.Context, n *storage.Note) error {
	if err := storage.CheckNote(n); err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(
		ctx,
		s.db.Rebind("INSERT INTO notes(id, owner_id, note_time, body, kind, image_id, video_id) "+
			"VALUES(?, ?, ?, ?, ?, ?, ?)"),
		n.ID, n.OwnerID, n.Time, n.Text, string(n.Kind), n.ImageID, n.VideoID)
	if isUniqueViolation(err) {
		return fmt.Errorf("duplicate ID %q: %w", n.ID, storage.ErrDuplicateNoteID)
	}
	return err
}

func (s *Storage) GetNote(ctx context.Context, ownerID, id string) (storage.Note, error) {
	var n storage.Note
	err := s.db.GetContext(
		ctx,
		&n,
		s.db.Rebind("SELECT "+noteColumns+" FROM notes WHERE id=? AND owner_id=?"),
		id, ownerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Note{}, fmt.Errorf("failed to get note with id %q: %w", id, storage.ErrNotFoundNote)
	}
	n.Time = n.Time.UTC()
	return n, err
}

func (s *Storage) UpdateNote(
	ctx context.Context,
	ownerID, id string,
	patch storage.NotePatch,
) (storage.Note, error) {
	n, err := s.GetNote(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFoundNote) {
			return storage.Note{}, fmt.Errorf("failed to update note with id %q: %w", id, storage.ErrNotFoundNote)
		}
		return storage.Note{}, err
	}
	patch.Apply(&n)
	if err := storage.CheckNote(&n); err != nil {
		return storage.Note{}, err
	}

	res, err := s.db.ExecContext(
		ctx,
		s.db.Rebind("UPDATE notes SET note_time=?, body=?, kind=?, image_id=?, video_id=? "+
			"WHERE id=? AND owner_id=?"),
		n.Time, n.Text, string(n.Kind), n.ImageID, n.VideoID, id, ownerID,
	)
	if err != nil {
		return storage.Note{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return storage.Note{}, fmt.Errorf("failed to update note with id %q: %w", id, storage.ErrNotFoundNote)
	}
	return n, nil
}

func (s *Storage) RemoveNote(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM notes WHERE id=? AND owner_id=?"), id, ownerID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("failed to remove note with id %q: %w", id, storage.ErrNotFoundNote)
	}
	return nil
}

func (s *Storage) ListNotes(ctx context.Context, ownerID string) ([]storage.Note, error) {
	return s.selectNotes(
		ctx,
		"SELECT "+noteColumns+" FROM notes WHERE owner_id=? ORDER BY note_time DESC",
		ownerID,
	)
}

// Select in range [start:end).
func (s *Storage) GetNotesInRange(
	ctx context.Context,
	ownerID string,
	start, end time.Time,
) ([]storage.Note, error) {
	return s.selectNotes(
		ctx,
		"SELECT "+noteColumns+" FROM notes WHERE owner_id=? AND note_time>=? AND note_time<? ORDER BY note_time",
		ownerID, start.UTC(), end.UTC(),
	)
}

func (s *Storage) FindSettings(ctx context.Context, ownerID string) (storage.Settings, error) {
	var st storage.Settings
	err := s.db.GetContext(
		ctx,
		&st,
		s.db.Rebind("SELECT "+settingsColumns+" FROM settings WHERE owner_id=? LIMIT 1"),
		ownerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Settings{}, fmt.Errorf("owner %q: %w", ownerID, storage.ErrNotFoundSettings)
	}
	return st, err
}

func (s *Storage) AddSettings(ctx context.Context, st *storage.Settings) error {
	if st.OwnerID == "" {
		return storage.ErrOwnerIsNotProvided
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		s.db.Rebind("INSERT INTO settings(id, owner_id, timezone, working_day, theme_overrides, push_token, updated_at) "+
			"VALUES(?, ?, ?, ?, ?, ?, ?)"),
		st.ID, st.OwnerID, st.Timezone, st.WorkingDay, st.ThemeOverrides, st.PushToken, st.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("owner %q: %w", st.OwnerID, storage.ErrDuplicateSettings)
	}
	return err
}

func (s *Storage) UpdateSettings(
	ctx context.Context,
	ownerID string,
	patch storage.SettingsPatch,
) (storage.Settings, error) {
	st, err := s.FindSettings(ctx, ownerID)
	if err != nil {
		return storage.Settings{}, err
	}
	patch.Apply(&st)
	st.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(
		ctx,
		s.db.Rebind("UPDATE settings SET timezone=?, working_day=?, theme_overrides=?, push_token=?, updated_at=? "+
			"WHERE owner_id=?"),
		st.Timezone, st.WorkingDay, st.ThemeOverrides, st.PushToken, st.UpdatedAt, ownerID,
	)
	return st, err
}

func (s *Storage) ListPushSubscribers(ctx context.Context) ([]storage.Settings, error) {
	var res []storage.Settings
	err := s.db.SelectContext(
		ctx,
		&res,
		"SELECT "+settingsColumns+" FROM settings WHERE push_token <> '' ORDER BY owner_id",
	)
	return res, err
}

func (s *Storage) AddUser(ctx context.Context, u *storage.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		s.db.Rebind("INSERT INTO users(id, email, name, password_hash, created_at) VALUES(?, ?, ?, ?, ?)"),
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %q: %w", u.Email, storage.ErrDuplicateUser)
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, id string) (storage.User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id=?", id)
}

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (storage.User, error) {
	return s.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email=?", strings.ToLower(strings.TrimSpace(email)))
}

// AppliedMigrations returns applied schema versions in ascending order.
func (s *Storage) AppliedMigrations(ctx context.Context) ([]int, error) {
	var versions []int
	err := s.db.SelectContext(ctx, &versions, "SELECT version FROM schema_version ORDER BY version")
	return versions, err
}

const (
	noteColumns     = "id, owner_id, note_time, body, kind, image_id, video_id"
	settingsColumns = "id, owner_id, timezone, working_day, theme_overrides, push_token, updated_at"
	userColumns     = "id, email, name, password_hash, created_at"
)

func (s *Storage) selectNotes(ctx context.Context, query string, args ...interface{}) ([]storage.Note, error) {
	notes := make([]storage.Note, 0)
	if err := s.db.SelectContext(ctx, &notes, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Time = notes[i].Time.UTC()
	}
	return notes, nil
}

func (s *Storage) getUser(ctx context.Context, query string, arg string) (storage.User, error) {
	var u storage.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, fmt.Errorf("user %q: %w", arg, storage.ErrNotFoundUser)
	}
	return u, err
}

func (s *Storage) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		version, err := strconv.Atoi(strings.SplitN(entry.Name(), "_", 2)[0])
		if err != nil {
			return fmt.Errorf("invalid migration file name %q: %w", entry.Name(), err)
		}

		var applied int
		err = s.db.GetContext(ctx, &applied, s.db.Rebind("SELECT COUNT(*) FROM schema_version WHERE version=?"), version)
		if err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if err := s.applyMigration(ctx, version, string(content)); err != nil {
			return fmt.Errorf("applying migration %s: %w", entry.Name(), err)
		}
		log.Debugf("applied migration %s", entry.Name())
	}
	return nil
}

func (s *Storage) applyMigration(ctx context.Context, version int, content string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range strings.Split(content, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(
		ctx,
		tx.Rebind("INSERT INTO schema_version(version, applied_at) VALUES(?, ?)"),
		version, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == dbErrUniqueViolation
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
