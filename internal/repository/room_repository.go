package repository

import (
    "context"
    "database/sql"

    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// RoomRepo provides data access to the rooms table.  Rooms are
// read-mostly reference data; registration happens through the admin
// surface only.
type RoomRepo struct {
    db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = `id, name, type, no, created_at`

func scanRoom(scan func(dest ...any) error) (*model.Room, error) {
    var r model.Room
    if err := scan(&r.ID, &r.Name, &r.Type, &r.No, &r.CreatedAt); err != nil {
        return nil, err
    }
    return &r, nil
}

// Create inserts a room and populates its generated id.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
    const q = `INSERT INTO rooms (name, type, no) VALUES (?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, room.Name, room.Type, room.No)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    room.ID = uint64(id)
    return nil
}

// ByID returns one room, or (nil, nil) when absent.
func (r *RoomRepo) ByID(ctx context.Context, id uint64) (*model.Room, error) {
    const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
    room, err := scanRoom(r.db.QueryRowContext(ctx, q, id).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return room, err
}

// ByType returns a type's rooms in ascending id order, which room
// selection depends on.
func (r *RoomRepo) ByType(ctx context.Context, roomType int) ([]model.Room, error) {
    const q = `SELECT ` + roomColumns + ` FROM rooms WHERE type = ? ORDER BY id`
    return r.queryMany(ctx, q, roomType)
}

// ByTypeAndNo returns the room with a given type and number, or
// (nil, nil).
func (r *RoomRepo) ByTypeAndNo(ctx context.Context, roomType, no int) (*model.Room, error) {
    const q = `SELECT ` + roomColumns + ` FROM rooms WHERE type = ? AND no = ? LIMIT 1`
    room, err := scanRoom(r.db.QueryRowContext(ctx, q, roomType, no).Scan)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return room, err
}

// List returns every room ordered by type then number.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
    const q = `SELECT ` + roomColumns + ` FROM rooms ORDER BY type, no`
    return r.queryMany(ctx, q)
}

func (r *RoomRepo) queryMany(ctx context.Context, q string, args ...any) ([]model.Room, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Room, 0)
    for rows.Next() {
        room, err := scanRoom(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *room)
    }
    return out, rows.Err()
}
