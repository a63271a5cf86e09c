// Package dataset 加载已清洗的历史月度变化 CSV，转换为领域序列
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wyfcoding/equitysim/internal/simulation/domain"
	"github.com/wyfcoding/equitysim/pkg/logger"
)

// Config 三条历史序列的 CSV 路径
type Config struct {
	PropertyCSV     string
	CPICSV          string
	MortgageRateCSV string
}

// 接受的日期格式，按月度数据的常见写法排列
var dateLayouts = []string{"2006-01", "2006-01-02", "02/01/2006"}

// Load 加载三条历史序列
// 文件缺失或格式非法属于启动期致命错误
func Load(ctx context.Context, cfg Config) (domain.MarketHistory, error) {
	property, err := loadSeries("property", cfg.PropertyCSV)
	if err != nil {
		return domain.MarketHistory{}, err
	}
	cpi, err := loadSeries("cpi", cfg.CPICSV)
	if err != nil {
		return domain.MarketHistory{}, err
	}
	rate, err := loadSeries("mortgage_rate", cfg.MortgageRateCSV)
	if err != nil {
		return domain.MarketHistory{}, err
	}

	history := domain.MarketHistory{
		Property:     property,
		CPI:          cpi,
		MortgageRate: rate,
	}
	if err := history.Validate(); err != nil {
		return domain.MarketHistory{}, err
	}

	logger.Info(ctx, "historical series loaded",
		"property_points", property.Len(),
		"cpi_points", cpi.Len(),
		"mortgage_rate_points", rate.Len(),
	)
	return history, nil
}

// loadSeries 读取单个 CSV：date,monthly_change（首行可为表头）
func loadSeries(name, path string) (domain.HistoricalSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.HistoricalSeries{}, fmt.Errorf("open %s dataset: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	series := domain.HistoricalSeries{Name: name}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.HistoricalSeries{}, fmt.Errorf("read %s dataset: %w", name, err)
		}
		line++

		// 表头行跳过
		if line == 1 && !isNumeric(record[1]) {
			continue
		}

		date, err := parseDate(strings.TrimSpace(record[0]))
		if err != nil {
			return domain.HistoricalSeries{}, fmt.Errorf("%s dataset line %d: %w", name, line, err)
		}
		change, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return domain.HistoricalSeries{}, fmt.Errorf("%s dataset line %d: invalid change %q", name, line, record[1])
		}

		series.Points = append(series.Points, domain.SeriesPoint{
			Date:   date,
			Change: change,
		})
	}

	return series, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
