package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/worldsun-app/coopeartion-project/internal/catalog"
	appErr "github.com/worldsun-app/coopeartion-project/internal/pkg/errors"
	"github.com/worldsun-app/coopeartion-project/internal/pkg/response"
)

type CatalogHandler struct {
	holder *catalog.Holder
}

func NewCatalogHandler(holder *catalog.Holder) *CatalogHandler {
	return &CatalogHandler{holder: holder}
}

type catalogView struct {
	Names   []string `json:"names"`
	Indexed int      `json:"indexed"`
	BuiltAt int64    `json:"built_at"`
}

func snapshotView(s *catalog.Snapshot) catalogView {
	v := catalogView{Names: s.Names()}
	if s.Index != nil {
		v.Indexed = s.Index.Len()
	}
	if !s.BuiltAt.IsZero() {
		v.BuiltAt = s.BuiltAt.Unix()
	}
	return v
}

func (h *CatalogHandler) Get(c *gin.Context) {
	response.Success(c, snapshotView(h.holder.Current()))
}

func (h *CatalogHandler) Rebuild(c *gin.Context) {
	snap, err := h.holder.Rebuild(c.Request.Context())
	if err != nil {
		handleError(c, fmt.Errorf("rebuild catalog: %w: %w", appErr.ErrUnavailable, err))
		return
	}
	response.Success(c, snapshotView(snap))
}
