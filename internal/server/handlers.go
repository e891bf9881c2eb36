package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"StockDash/internal/chart"
	"StockDash/internal/dashboard"
	"StockDash/internal/export"
	"StockDash/internal/model"
)

var templateFuncs = template.FuncMap{
	"price": func(v *float64) string {
		if v == nil {
			return ""
		}
		return model.FormatPrice(*v)
	},
	"money":  model.FormatPrice,
	"change": model.FormatChange,
	"fixed1": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"stamp": func(t time.Time, interval string) string {
		switch interval {
		case "1d", "1wk", "1mo":
			return t.Format(model.DateLayout)
		}
		return t.Format("2006-01-02 15:04")
	},
}

// pageData feeds templates/index.html.
type pageData struct {
	View        *dashboard.View
	Ticker      string
	Start       string
	End         string
	Interval    string
	Column      string
	Projection  string
	Intervals   []string
	Modes       []model.ProjectionMode
	HasModel    bool
	QueryString template.URL
	PriceChart  template.URL
	VolumeChart template.URL
}

func (s *Server) index(c *gin.Context) {
	status := http.StatusOK
	view, err := s.run(c)
	if err != nil {
		log.Printf("[ERROR] index: %v", err)
		status = http.StatusBadGateway
		q, _ := dashboard.ParseQuery(c.Request.URL.Query(), s.defaults, s.now())
		view = &dashboard.View{Query: q, Error: "Could not load data from the market data provider. Please try again."}
	}

	q := view.Query
	form := url.Values{}
	form.Set("ticker", q.Ticker)
	form.Set("start", dateString(q.Start))
	form.Set("end", dateString(q.End))
	form.Set("interval", q.Interval)
	form.Set("column", view.Selected)
	form.Set("projection", string(q.Projection))
	if q.Seed != 0 {
		form.Set("seed", fmt.Sprint(q.Seed))
	}
	if q.Horizon > 0 {
		form.Set("horizon", fmt.Sprint(q.Horizon))
	}

	var priceChart, volumeChart template.URL
	if view.HasChart() {
		priceChart = embedChart(func(buf *bytes.Buffer) error {
			return chart.Price(buf, q.Ticker, view.Selected, q.Interval, view.Points, view.Forecast)
		})
		if len(view.Volume) > 0 {
			volumeChart = embedChart(func(buf *bytes.Buffer) error {
				return chart.Volume(buf, q.Ticker, q.Interval, view.Volume)
			})
		}
	}

	c.HTML(status, "index.html", pageData{
		View:        view,
		Ticker:      q.Ticker,
		Start:       dateString(q.Start),
		End:         dateString(q.End),
		Interval:    q.Interval,
		Column:      view.Selected,
		Projection:  string(q.Projection),
		Intervals:   model.Intervals,
		Modes:       []model.ProjectionMode{model.ProjectionNone, model.ProjectionModel, model.ProjectionRandom},
		HasModel:    s.svc.Projector.HasModel(),
		QueryString: template.URL(form.Encode()),
		PriceChart:  priceChart,
		VolumeChart: volumeChart,
	})
}

// embedChart renders a chart into a data URI so the page needs no second
// round trip to the market data provider.
func embedChart(draw func(*bytes.Buffer) error) template.URL {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		if !errors.Is(err, chart.ErrNoData) {
			log.Printf("[ERROR] render chart: %v", err)
		}
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func (s *Server) series(c *gin.Context) {
	view, err := s.run(c)
	if err != nil {
		providerError(c, err)
		return
	}
	if view.Error != "" {
		c.JSON(http.StatusBadRequest, view)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) priceChart(c *gin.Context) {
	s.chart(c, func(buf *bytes.Buffer, v *dashboard.View) error {
		return chart.Price(buf, v.Query.Ticker, v.Selected, v.Query.Interval, v.Points, v.Forecast)
	})
}

func (s *Server) volumeChart(c *gin.Context) {
	s.chart(c, func(buf *bytes.Buffer, v *dashboard.View) error {
		return chart.Volume(buf, v.Query.Ticker, v.Query.Interval, v.Volume)
	})
}

func (s *Server) chart(c *gin.Context, draw func(*bytes.Buffer, *dashboard.View) error) {
	view, err := s.run(c)
	if err != nil {
		providerError(c, err)
		return
	}
	if view.Error != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": view.Error})
		return
	}

	var buf bytes.Buffer
	switch err := draw(&buf, view); {
	case errors.Is(err, chart.ErrNoData):
		c.Status(http.StatusNoContent)
	case err != nil:
		log.Printf("[ERROR] render chart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render chart"})
	default:
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	}
}

func (s *Server) export(c *gin.Context) {
	format := c.DefaultQuery("format", export.FormatCSV)
	if format != export.FormatCSV && format != export.FormatParquet {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or parquet"})
		return
	}
	view, err := s.run(c)
	if err != nil {
		providerError(c, err)
		return
	}
	if view.Error != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": view.Error})
		return
	}
	if view.Frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": dashboard.WarnNoData})
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, view.Query.Ticker, view.Frame); err != nil {
		log.Printf("[ERROR] export %s: %v", format, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	filename := fmt.Sprintf("%s_%s_%s.%s", view.Query.Ticker,
		dateString(view.Query.Start), dateString(view.Query.End), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
