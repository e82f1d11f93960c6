package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"firext-backend/internal/model"
	"firext-backend/internal/monitor"
	"firext-backend/internal/parse"
	"firext-backend/internal/policy"
	"firext-backend/internal/store"
)

// dockRequest is the dock form. Weight is optional on create.
type dockRequest struct {
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Weight    *float64 `json:"weight"`
	LedNum    any      `json:"led_num"`
	ExpiresAt string   `json:"expires_at"`
}

// toDock validates the form and returns the dock it describes, with
// led_state derived from the weight.
func (h *Handler) toDock(req dockRequest) (model.Dock, error) {
	name, err := parse.Text("name", req.Name)
	if err != nil {
		return model.Dock{}, err
	}
	location, err := parse.Text("location", req.Location)
	if err != nil {
		return model.Dock{}, err
	}
	weight, err := parse.Weight(req.Weight)
	if err != nil {
		return model.Dock{}, err
	}
	ledNum, err := parse.LedNum(req.LedNum)
	if err != nil {
		return model.Dock{}, err
	}
	expires, err := parse.ExpiryDate(req.ExpiresAt, h.loc)
	if err != nil {
		return model.Dock{}, err
	}
	ledOn := policy.LedFor(weight)
	return model.Dock{
		Name:      name,
		Location:  location,
		Weight:    &weight,
		LedNum:    &ledNum,
		LedState:  &ledOn,
		ExpiresAt: &expires,
	}, nil
}

// ListDocks returns every dock, optionally filtered by name or location.
func (h *Handler) ListDocks(c *gin.Context) {
	docks, err := h.store.ListDocks(c.Request.Context(), store.ParseOrderKey(c.Query("order")))
	if err != nil {
		log.Printf("Error listing docks: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load docks"})
		return
	}

	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	now := h.now()
	views := make([]monitor.DockView, 0, len(docks))
	for _, d := range docks {
		if q != "" && !strings.Contains(strings.ToLower(d.Name), q) && !strings.Contains(strings.ToLower(d.Location), q) {
			continue
		}
		views = append(views, monitor.NewDockView(d, now, h.loc))
	}
	c.JSON(http.StatusOK, views)
}

// GetDock returns the derived view of one dock. It does not open a
// detail session; use the dock socket for that.
func (h *Handler) GetDock(c *gin.Context) {
	dock, err := h.store.GetDock(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.dockError(c, err)
		return
	}
	c.JSON(http.StatusOK, monitor.NewDockView(dock, h.now(), h.loc))
}

// CreateDock adds a dock from the form.
func (h *Handler) CreateDock(c *gin.Context) {
	var req dockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	dock, err := h.toDock(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dock.ID = h.store.GenerateID()

	if err := h.store.CreateDock(c.Request.Context(), &dock); err != nil {
		log.Printf("Error creating dock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save dock"})
		return
	}
	h.cache.Flush()
	c.JSON(http.StatusCreated, monitor.NewDockView(dock, h.now(), h.loc))
}

// ReplaceDock overwrites a dock with the submitted form.
func (h *Handler) ReplaceDock(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req dockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	dock, err := h.toDock(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.store.GetDock(ctx, id)
	if err != nil {
		h.dockError(c, err)
		return
	}
	dock.ID = id
	dock.LastReweighedAt = existing.LastReweighedAt

	if err := h.store.ReplaceDock(ctx, &dock); err != nil {
		log.Printf("Error replacing dock %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save dock"})
		return
	}
	h.cache.Flush()
	c.JSON(http.StatusOK, monitor.NewDockView(dock, h.now(), h.loc))
}

// PatchDock merges only the submitted fields. A new weight also sets led_state.
func (h *Handler) PatchDock(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	fields, err := h.patchFields(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updatable fields"})
		return
	}

	if err := h.store.UpdateDockFields(ctx, id, fields); err != nil {
		h.dockError(c, err)
		return
	}
	h.cache.Flush()

	dock, err := h.store.GetDock(ctx, id)
	if err != nil {
		h.dockError(c, err)
		return
	}
	c.JSON(http.StatusOK, monitor.NewDockView(dock, h.now(), h.loc))
}

func (h *Handler) patchFields(raw map[string]json.RawMessage) (map[string]any, error) {
	fields := make(map[string]any)
	for key, value := range raw {
		switch key {
		case "name", "location":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fmt.Errorf("%s must be a string", key)
			}
			text, err := parse.Text(key, s)
			if err != nil {
				return nil, err
			}
			fields[key] = text
		case "weight":
			var w *float64
			if err := json.Unmarshal(value, &w); err != nil || w == nil {
				return nil, errors.New("weight must be a valid number")
			}
			weight, err := parse.Weight(w)
			if err != nil {
				return nil, err
			}
			fields["weight"] = weight
			fields["led_state"] = policy.LedFor(weight)
		case "led_num":
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return nil, errors.New("led_num must be a valid number")
			}
			n, err := parse.LedNum(v)
			if err != nil {
				return nil, err
			}
			fields["led_num"] = n
		case "expires_at":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, errors.New("expires_at must be a date")
			}
			t, err := parse.ExpiryDate(s, h.loc)
			if err != nil {
				return nil, err
			}
			fields["expires_at"] = t
		case "id", "led_state", "created_at", "updated_at", "last_reweighed_at":
			return nil, fmt.Errorf("%s cannot be set", key)
		default:
			return nil, fmt.Errorf("unknown field %q", key)
		}
	}
	return fields, nil
}

// DeleteDock removes one dock.
func (h *Handler) DeleteDock(c *gin.Context) {
	if err := h.store.DeleteDock(c.Request.Context(), c.Param("id")); err != nil {
		h.dockError(c, err)
		return
	}
	h.cache.Flush()
	c.Status(http.StatusNoContent)
}

// DeleteAllDocks removes every dock.
func (h *Handler) DeleteAllDocks(c *gin.Context) {
	if err := h.store.DeleteAllDocks(c.Request.Context()); err != nil {
		log.Printf("Error deleting all docks: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove docks"})
		return
	}
	h.cache.Flush()
	c.Status(http.StatusNoContent)
}

func (h *Handler) dockError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dock not found"})
		return
	}
	log.Printf("Error accessing dock %s: %v", c.Param("id"), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
