package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gmailscraper/backend/internal/config"
	"gmailscraper/backend/internal/domain"
	"gmailscraper/backend/internal/service"
)

// ScrapeHandler 抓取相关的 HTTP 处理逻辑。
type ScrapeHandler struct {
	runs *service.RunService
	cfg  *config.Config
	log  *zap.Logger
}

// NewScrapeHandler 创建抓取处理器
func NewScrapeHandler(runs *service.RunService, cfg *config.Config, log *zap.Logger) *ScrapeHandler {
	return &ScrapeHandler{
		runs: runs,
		cfg:  cfg,
		log:  log,
	}
}

// Identity 返回服务标识与目标落地信息
func (h *ScrapeHandler) Identity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "gmail-scraper",
		"project": h.cfg.BigQuery.ProjectID,
		"dataset": h.cfg.BigQuery.DatasetID,
		"table":   h.cfg.BigQuery.TableID,
	})
}

// TriggerScrape 同步执行一次抓取并返回聚合结果。
// 请求体可选；缺省时使用配置里的查询与上限。
func (h *ScrapeHandler) TriggerScrape(c *gin.Context) {
	var opts service.RunOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid request body",
			})
			return
		}
	}
	if opts.MaxPerUser < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "max_per_user must be positive",
		})
		return
	}

	result, err := h.runs.Run(c.Request.Context(), opts)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "scrape run already in progress",
			})
			return
		}
		h.log.Error("scrape trigger failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
		return
	}

	// 致命失败（目标初始化、目录枚举）返回 500，
	// 带错误的完成仍视为成功响应
	if result.Status == domain.RunStatusFailed {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
