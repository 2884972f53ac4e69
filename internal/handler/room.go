package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/hyeonwoo/studycafe-server/internal/model"
    "github.com/hyeonwoo/studycafe-server/internal/repository"
)

// RoomHandler manages the room inventory.  Listing is open to any
// signed-in user; creation is staff only.
type RoomHandler struct {
    Rooms *repository.RoomRepo
}

func NewRoomHandler(rooms *repository.RoomRepo) *RoomHandler {
    return &RoomHandler{Rooms: rooms}
}

// List returns every room.
// GET /v1/rooms
func (h *RoomHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rooms, err := h.Rooms.List(ctx)
    if err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "rooms": rooms})
}

type createRoomReq struct {
    Name string `json:"name"`
    Type int    `json:"type"`
    No   int    `json:"no"`
}

// Create adds a room to the inventory.
// POST /v1/rooms
func (h *RoomHandler) Create(c echo.Context) error {
    var req createRoomReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    if req.Name == "" || req.Type <= 0 || req.No <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "name, type and no are required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if existing, err := h.Rooms.ByTypeAndNo(ctx, req.Type, req.No); err != nil {
        return respondFault(c, err)
    } else if existing != nil {
        return c.JSON(http.StatusConflict, echo.Map{"message": "a room with that type and number already exists"})
    }

    room := &model.Room{Name: req.Name, Type: req.Type, No: req.No}
    if err := h.Rooms.Create(ctx, room); err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "ok", "room": room})
}
