package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yourusername/facturas/models"
	"gorm.io/gorm"
)

type ArticleHandler struct {
	db *gorm.DB
}

func NewArticleHandler(db *gorm.DB) *ArticleHandler {
	return &ArticleHandler{db: db}
}

type ArticleRequest struct {
	Code        string           `json:"code"`
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
	Category    string           `json:"category"`
}

func (r *ArticleRequest) validate() string {
	if r.UnitPrice.IsNegative() {
		return "unit_price cannot be negative"
	}
	if r.VATRate != nil && (r.VATRate.IsNegative() || r.VATRate.GreaterThan(decimal.NewFromInt(100))) {
		return "vat_rate must be between 0 and 100"
	}
	return ""
}

func (r *ArticleRequest) code() *string {
	code := strings.TrimSpace(r.Code)
	if code == "" {
		return nil
	}
	return &code
}

// ListArticles supports ?search=, ?category= and ?include_inactive=true
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	query := h.db.Model(&models.Article{})
	if c.Query("include_inactive") != "true" {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(description) LIKE ?)", like, like, like)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var articles []models.Article
	if err := query.Order("name ASC").Find(&articles).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

func (h *ArticleHandler) loadArticle(c *gin.Context) (*models.Article, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	var article models.Article
	if err := h.db.First(&article, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return nil, false
	}
	return &article, true
}

func (h *ArticleHandler) GetArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, article)
}

func (h *ArticleHandler) codeTaken(code *string, excludeID uint) bool {
	if code == nil {
		return false
	}
	var count int64
	h.db.Unscoped().Model(&models.Article{}).Where("code = ? AND id <> ?", *code, excludeID).Count(&count)
	return count > 0
}

func (h *ArticleHandler) CreateArticle(c *gin.Context) {
	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if h.codeTaken(req.code(), 0) {
		c.JSON(http.StatusConflict, gin.H{"error": "Article code already exists"})
		return
	}

	vatRate := decimal.NewFromInt(21)
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}
	article := models.Article{
		Code:        req.code(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		VATRate:     vatRate,
		Category:    req.Category,
		IsActive:    true,
	}
	if err := h.db.Create(&article).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

func (h *ArticleHandler) UpdateArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	var req ArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if h.codeTaken(req.code(), article.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Article code already exists"})
		return
	}

	updates := map[string]interface{}{
		"code":        req.code(),
		"name":        strings.TrimSpace(req.Name),
		"description": req.Description,
		"unit_price":  req.UnitPrice,
		"category":    req.Category,
	}
	if req.VATRate != nil {
		updates["vat_rate"] = *req.VATRate
	}
	if err := h.db.Model(article).Updates(updates).Error; err != nil {
		respondError(c, err)
		return
	}

	h.db.First(article, article.ID)
	c.JSON(http.StatusOK, article)
}

// DeleteArticle deactivates the article; invoice lines that reference it
// keep their own copy of description and price.
func (h *ArticleHandler) DeleteArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}
	if err := h.db.Model(article).Update("is_active", false).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Article deactivated"})
}
