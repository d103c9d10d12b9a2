package livehttp

import (
	"net/http"
	"strconv"

	"marlin/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// chartHandler renders the daily P/L history as an HTML chart.
func chartHandler(journal *store.Journal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if journal == nil {
			c.String(http.StatusNotFound, "trade journal disabled")
			return
		}
		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
		daily, err := journal.DailyPnL(c.Request.Context(), days)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}

		labels := make([]string, 0, len(daily))
		pnl := make([]opts.BarData, 0, len(daily))
		cumulative := make([]opts.LineData, 0, len(daily))
		var running float64
		for _, d := range daily {
			labels = append(labels, d.Day)
			pnl = append(pnl, opts.BarData{Value: d.PnL})
			running += d.PnL
			cumulative = append(cumulative, opts.LineData{Value: running})
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title:    "Daily P/L (USDT)",
				Subtitle: "realized, per UTC day",
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		)
		bar.SetXAxis(labels)
		bar.AddSeries("daily", pnl)

		line := charts.NewLine()
		line.SetXAxis(labels)
		line.AddSeries("cumulative", cumulative,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		bar.Overlap(line)

		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := bar.Render(c.Writer); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
		}
	}
}
