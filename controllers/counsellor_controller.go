package controllers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/utils"
)

// CounsellorController serves the public counsellor directory.
type CounsellorController struct {
	db *gorm.DB
}

// NewCounsellorController creates a CounsellorController.
func NewCounsellorController(db *gorm.DB) *CounsellorController {
	return &CounsellorController{db: db}
}

// List returns the directory ordered by rating, optionally filtered by ?specialty= and ?q=.
// Specialties live in a JSON column so filtering happens after the load.
func (c *CounsellorController) List(ctx *gin.Context) {
	var rows []models.Counsellor
	if err := c.db.WithContext(ctx.Request.Context()).Order("rating DESC").Order("name ASC").Find(&rows).Error; err != nil {
		utils.Sugar.Errorw("list counsellors failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load counsellors")
		return
	}

	specialty := strings.ToLower(strings.TrimSpace(ctx.Query("specialty")))
	q := strings.ToLower(strings.TrimSpace(ctx.Query("q")))

	out := make([]models.Counsellor, 0, len(rows))
	for _, r := range rows {
		r = r.WithDefaults()
		if specialty != "" && specialty != "all" && !r.HasSpecialty(specialty) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.Bio), q) &&
			!containsFold(r.Specialties, q) {
			continue
		}
		out = append(out, r)
	}
	utils.Success(ctx, gin.H{"counsellors": out, "total": len(out)})
}

// Specialties returns every specialty in the directory plus the predefined list, sorted.
func (c *CounsellorController) Specialties(ctx *gin.Context) {
	var rows []models.Counsellor
	if err := c.db.WithContext(ctx.Request.Context()).Select("id", "specialties").Find(&rows).Error; err != nil {
		utils.Sugar.Errorw("load specialties failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load specialties")
		return
	}
	seen := make(map[string]struct{}, len(models.PredefinedSpecialties))
	for _, s := range models.PredefinedSpecialties {
		seen[s] = struct{}{}
	}
	for _, r := range rows {
		for _, s := range r.Specialties {
			if s = strings.TrimSpace(s); s != "" {
				seen[s] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	utils.Success(ctx, gin.H{"specialties": out})
}

func containsFold(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), sub) {
			return true
		}
	}
	return false
}
