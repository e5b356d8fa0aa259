package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yungbote/bucketd/internal/bucket"
	"github.com/yungbote/bucketd/internal/registry"
	"github.com/yungbote/bucketd/internal/supervisor"
)

type BucketsHandler struct {
	reg *registry.Registry
	sup *supervisor.Supervisor
}

func NewBucketsHandler(reg *registry.Registry, sup *supervisor.Supervisor) *BucketsHandler {
	return &BucketsHandler{reg: reg, sup: sup}
}

type createBucketRequest struct {
	Name string `json:"name" binding:"required"`
}

// POST /api/buckets
//
// Creation is asynchronous: the request is queued for the registry
// controller and acknowledged with 202. Poll the bucket or watch the event
// stream to observe the registration.
func (h *BucketsHandler) CreateBucket(c *gin.Context) {
	var req createBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		RespondError(c, http.StatusBadRequest, "invalid_name", errors.New("name must not be empty"))
		return
	}

	h.reg.CreateIfAbsent(name)
	c.JSON(http.StatusAccepted, gin.H{"name": name, "status": "accepted"})
}

// GET /api/buckets
func (h *BucketsHandler) ListBuckets(c *gin.Context) {
	names := h.reg.Table().Names()
	if names == nil {
		names = []string{}
	}
	RespondOK(c, gin.H{"buckets": names})
}

// GET /api/buckets/:name
func (h *BucketsHandler) GetBucket(c *gin.Context) {
	name := c.Param("name")
	b, ok := h.reg.Table().Lookup(name)
	if !ok {
		RespondError(c, http.StatusNotFound, "bucket_not_found", errors.New("no bucket registered under "+name))
		return
	}
	RespondOK(c, gin.H{
		"name":      name,
		"worker_id": b.ID(),
		"stats":     b.Stats(),
	})
}

// DELETE /api/buckets/:name
//
// Stops the bucket's worker through the supervisor; the registry observes
// the termination and removes the mapping on its own. Removal is therefore
// eventual, hence 202.
func (h *BucketsHandler) DeleteBucket(c *gin.Context) {
	name := c.Param("name")
	b, ok := h.reg.Table().Lookup(name)
	if !ok {
		RespondError(c, http.StatusNotFound, "bucket_not_found", errors.New("no bucket registered under "+name))
		return
	}

	h.sup.Stop(b.ID())
	c.JSON(http.StatusAccepted, gin.H{"name": name, "status": "stopping"})
}

// GET /api/buckets/:name/keys/:key
func (h *BucketsHandler) GetKey(c *gin.Context) {
	b, ok := h.lookup(c)
	if !ok {
		return
	}
	v, err := b.Get(c.Param("key"))
	if err != nil {
		h.respondBucketError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", v)
}

// PUT /api/buckets/:name/keys/:key
func (h *BucketsHandler) PutKey(c *gin.Context) {
	b, ok := h.lookup(c)
	if !ok {
		return
	}
	value, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := b.Put(c.Param("key"), value); err != nil {
		h.respondBucketError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/buckets/:name/keys/:key
func (h *BucketsHandler) DeleteKey(c *gin.Context) {
	b, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := b.Delete(c.Param("key")); err != nil {
		h.respondBucketError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BucketsHandler) lookup(c *gin.Context) (*bucket.Bucket, bool) {
	name := c.Param("name")
	b, ok := h.reg.Table().Lookup(name)
	if !ok {
		RespondError(c, http.StatusNotFound, "bucket_not_found", errors.New("no bucket registered under "+name))
		return nil, false
	}
	return b, true
}

func (h *BucketsHandler) respondBucketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, bucket.ErrKeyNotFound):
		RespondError(c, http.StatusNotFound, "key_not_found", err)
	case errors.Is(err, bucket.ErrStopped):
		// The worker died between lookup and the operation; the mapping is
		// on its way out of the table.
		RespondError(c, http.StatusGone, "bucket_stopped", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
