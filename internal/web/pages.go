package web

import (
	"net/http"

	"github.com/Joseda-hg/lazygantt/internal/gantt"
	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

const (
	headerHeight = 40
	listWidth    = 280
)

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	data := struct {
		Total    int
		Projects []model.Project
	}{Total: len(projects), Projects: projects}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.log.Logf("[WARN] render index: %v", err)
	}
}

type pageData struct {
	Chart        *gantt.Chart
	Views        []timeline.ViewType
	HeaderHeight float64
	ListWidth    float64
	SVGHeight    float64
}

func (s *Server) projectPageHandler(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	params, err := s.chartParams(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	chart, err := s.chart(r.Context(), projectID, params)
	if err != nil {
		s.fail(w, err)
		return
	}

	data := pageData{
		Chart:        chart,
		Views:        []timeline.ViewType{timeline.ViewDay, timeline.ViewWeek, timeline.ViewMonth},
		HeaderHeight: headerHeight,
		ListWidth:    listWidth,
		SVGHeight:    chart.Height + headerHeight,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ganttTemplate.Execute(w, data); err != nil {
		s.log.Logf("[WARN] render project %d: %v", projectID, err)
	}
}
