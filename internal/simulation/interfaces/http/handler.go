package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/equitysim/internal/simulation/application"
	"github.com/wyfcoding/equitysim/pkg/logger"
)

// Handler HTTP 处理器
// 负责处理模拟批次的提交、状态查询、统计查询与路径重放
type Handler struct {
	service *application.SimulationApplicationService
}

// NewHandler 创建 HTTP 处理器实例
func NewHandler(service *application.SimulationApplicationService) *Handler {
	return &Handler{
		service: service,
	}
}

// RunSimulationRequest 提交模拟批次请求
type RunSimulationRequest struct {
	// 每个目标年份的场景数
	NumScenariosPerYear int `json:"num_scenarios_per_year"`
	// 候选目标清偿年份上限
	MaxRepaymentYear int `json:"max_repayment_year"`
	// 历史回看窗口（年）
	LookbackYears int `json:"lookback_years"`
	// 初始房产价值
	InitialPropertyValue string `json:"initial_property_value"`
	// 股权贷款初始占比
	InitialLoanShare float64 `json:"initial_loan_share"`
	// 初始按揭年利率
	InitialMortgageRate float64 `json:"initial_mortgage_rate"`
	// 方案利差
	SchemeMargin float64 `json:"scheme_margin"`
	// 部分还款事件概率
	PartialRepaymentProbability float64 `json:"partial_repayment_probability"`
	// 部分还款比例
	PartialRepaymentFraction float64 `json:"partial_repayment_fraction"`
}

// RunSimulation 提交模拟批次
// @Summary 提交模拟批次
// @Description 按给定参数异步运行蒙特卡洛模拟，返回批次标识
// @Tags Simulation
// @Accept json
// @Param request body RunSimulationRequest true "批次参数"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/simulations [post]
func (h *Handler) RunSimulation(c *gin.Context) {
	ctx := c.Request.Context()

	var req RunSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn(ctx, "Invalid simulation request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	cmd := application.RunSimulationCommand{
		NumScenariosPerYear:         req.NumScenariosPerYear,
		MaxRepaymentYear:            req.MaxRepaymentYear,
		LookbackYears:               req.LookbackYears,
		InitialLoanShare:            req.InitialLoanShare,
		InitialMortgageRate:         req.InitialMortgageRate,
		SchemeMargin:                req.SchemeMargin,
		PartialRepaymentProbability: req.PartialRepaymentProbability,
		PartialRepaymentFraction:    req.PartialRepaymentFraction,
	}
	if req.InitialPropertyValue != "" {
		value, err := decimal.NewFromString(req.InitialPropertyValue)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid initial_property_value: " + req.InitialPropertyValue,
			})
			return
		}
		cmd.InitialPropertyValue = value
	}

	runID, err := h.service.RunSimulation(ctx, cmd)
	if err != nil {
		logger.Error(ctx, "Failed to submit simulation run", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{
			"run_id": runID,
		},
	})
}

// GetRun 查询批次状态
// @Summary 查询批次状态
// @Tags Simulation
// @Param id path string true "批次标识"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/simulations/{id} [get]
func (h *Handler) GetRun(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("id")

	run, err := h.service.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, application.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		logger.Error(ctx, "Failed to get simulation run", "run_id", runID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"run_id":       run.RunID,
			"status":       run.Status,
			"message":      run.Message,
			"submitted_at": run.SubmittedAt,
			"finished_at":  run.FinishedAt,
		},
	})
}

// GetStatistics 查询批次的年度统计
// @Summary 查询批次的年度统计
// @Description 返回各目标清偿年份的净损益分位数，按中位数降序排名
// @Tags Simulation
// @Param id path string true "批次标识"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/simulations/{id}/years [get]
func (h *Handler) GetStatistics(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("id")

	years, err := h.service.GetStatistics(ctx, runID)
	if err != nil {
		if errors.Is(err, application.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		logger.Error(ctx, "Failed to get run statistics", "run_id", runID, "error", err)
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": years,
	})
}

// ReplayPath 重放单个场景的完整轨迹
// @Summary 重放场景轨迹
// @Description 按 (目标年份, 种子) 重新生成完整经济路径与贷款状态时序，用于图表渲染
// @Tags Simulation
// @Param id path string true "批次标识"
// @Param year query int true "目标清偿年份"
// @Param seed query int64 true "场景种子（通常为年度统计返回的 median_seed）"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/simulations/{id}/path [get]
func (h *Handler) ReplayPath(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("id")

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "year must be an integer",
		})
		return
	}
	seed, err := strconv.ParseInt(c.Query("seed"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "seed must be an integer",
		})
		return
	}

	result, records, err := h.service.ReplayPath(ctx, runID, year, seed)
	if err != nil {
		if errors.Is(err, application.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": err.Error(),
			})
			return
		}
		logger.Error(ctx, "Failed to replay scenario path",
			"run_id", runID,
			"year", year,
			"seed", seed,
			"error", err,
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"result": result,
			"months": records,
		},
	})
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	simulations := router.Group("/simulations")
	{
		simulations.POST("", h.RunSimulation)
		simulations.GET("/:id", h.GetRun)
		simulations.GET("/:id/years", h.GetStatistics)
		simulations.GET("/:id/path", h.ReplayPath)
	}
}
