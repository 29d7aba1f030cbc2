package api

import (
	"net/http"
	"strconv"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ArticleHandler handles article HTTP requests
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// ListArticles handles GET /v1/articles
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	var param models.ArticleQueryParam
	if err := c.ShouldBindQuery(&param); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	page, err := h.services.Article.FindPage(c.Request.Context(), &param)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetArticle handles GET /v1/articles/:idOrAlias
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	article, err := h.services.Article.FindArticle(c.Request.Context(), c.Param("idOrAlias"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// GetNav handles GET /v1/articles/:idOrAlias/nav
func (h *ArticleHandler) GetNav(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	nav, err := h.services.Article.FindNav(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nav)
}

// Hit handles POST /v1/articles/:idOrAlias/hits
func (h *ArticleHandler) Hit(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.services.Article.Hits(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateArticle handles POST /v1/articles
func (h *ArticleHandler) CreateArticle(c *gin.Context) {
	var article models.Article
	if err := c.ShouldBindJSON(&article); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	saved, err := h.services.Article.Save(c.Request.Context(), &article)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// UpdateArticle handles PUT /v1/articles/:idOrAlias
func (h *ArticleHandler) UpdateArticle(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var article models.Article
	if err := c.ShouldBindJSON(&article); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	article.ID = id

	if err := h.services.Article.Update(c.Request.Context(), &article); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteArticle handles DELETE /v1/articles/:idOrAlias
func (h *ArticleHandler) DeleteArticle(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.services.Article.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BatchDelete handles POST /v1/articles/batch-delete
func (h *ArticleHandler) BatchDelete(c *gin.Context) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.services.Article.DeleteByIDs(c.Request.Context(), req.IDs); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetArticleForEdit handles GET /v1/articles/:idOrAlias/edit
func (h *ArticleHandler) GetArticleForEdit(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	article, err := h.services.Article.FindArticleForEdit(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Reindex handles POST /v1/admin/reindex
func (h *ArticleHandler) Reindex(c *gin.Context) {
	indexed, err := h.services.Article.RebuildIndex(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": indexed})
}

// pathID parses the numeric id path segment
func (h *ArticleHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("idOrAlias"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return 0, false
	}
	return id, true
}

// writeError maps service error kinds to HTTP statuses
func (h *ArticleHandler) writeError(c *gin.Context, err error) {
	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case models.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
