package gantt

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Joseda-hg/lazygantt/internal/model"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
)

const DefaultCacheSize = 64

// CacheKey identifies one rendered chart. Revision changes on every write to
// the project, so stale charts are never served. Day is part of the key
// because the today marker and the progress line move with the date.
type CacheKey struct {
	ProjectID int64
	Revision  string
	View      timeline.ViewType
	Expanded  string
	Day       string
}

// KeyFor builds the cache key of a chart request.
func KeyFor(project model.Project, params Params, now time.Time) CacheKey {
	expanded := "*"
	if !params.ExpandAll {
		ids := make([]int64, 0, len(params.Expanded))
		for id, open := range params.Expanded {
			if open {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		parts := make([]string, 0, len(ids))
		for _, id := range ids {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
		expanded = strings.Join(parts, ",")
	}
	baseline := now
	if !params.Baseline.IsZero() {
		baseline = params.Baseline
	}
	return CacheKey{
		ProjectID: project.ID,
		Revision:  project.Revision,
		View:      params.View,
		Expanded:  fmt.Sprintf("%s|%g", expanded, params.ContainerWidth),
		Day:       timeline.Day(now).Format(time.DateOnly) + "|" + timeline.Day(baseline).Format(time.DateOnly),
	}
}

// Cache memoizes built charts in a fixed size LRU.
type Cache struct {
	charts *lru.Cache[CacheKey, *Chart]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	charts, err := lru.New[CacheKey, *Chart](size)
	if err != nil {
		return nil, fmt.Errorf("create chart cache: %w", err)
	}
	return &Cache{charts: charts}, nil
}

// Chart returns the cached chart for key or builds and stores it. Failed
// builds are not cached.
func (c *Cache) Chart(key CacheKey, build func() (*Chart, error)) (*Chart, error) {
	if chart, ok := c.charts.Get(key); ok {
		return chart, nil
	}
	chart, err := build()
	if err != nil {
		return nil, err
	}
	c.charts.Add(key, chart)
	return chart, nil
}

// Forget drops every cached chart of a project.
func (c *Cache) Forget(projectID int64) {
	for _, key := range c.charts.Keys() {
		if key.ProjectID == projectID {
			c.charts.Remove(key)
		}
	}
}

func (c *Cache) Len() int {
	return c.charts.Len()
}
