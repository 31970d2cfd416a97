// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup clusters bibliographic records that describe the same work
// and merges each cluster into one record. Detection is a single ordered
// pass, so results depend only on the input order and the options.
//
// See docs/ARCHITECTURE § Duplicate Detection & Merge Engine.
package dedup

import (
	"context"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/bibclean/pkg/types"
)

// fuzzyTitleFloor is the minimum title similarity for the title-only
// fallback rule. The rule never accepts less than the configured
// title threshold.
const fuzzyTitleFloor = 0.95

// strategyStrength weights group confidence by how decisive the rule is.
var strategyStrength = map[types.MatchStrategy]float64{
	types.MatchDOI:         1.0,
	types.MatchTitleAuthor: 0.9,
	types.MatchURL:         0.85,
	types.MatchFuzzy:       0.7,
}

// Engine detects and merges duplicate records under one validated set of
// options. An Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	opts       types.DuplicateDetectionOptions
	fuzzyFloor float64
}

// NewEngine validates opts and returns an Engine. Invalid thresholds and
// unknown merge strategies are rejected with a *ConfigError.
func NewEngine(opts types.DuplicateDetectionOptions) (*Engine, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}
	return &Engine{
		opts:       opts,
		fuzzyFloor: math.Max(fuzzyTitleFloor, opts.TitleSimilarityThreshold),
	}, nil
}

// Options returns the options the engine was built with.
func (e *Engine) Options() types.DuplicateDetectionOptions {
	return e.opts
}

// member is a record tagged with its first-seen position in the input.
type member struct {
	rec types.ExtractedRecord
	seq int
}

// PreferPrimary reports whether a should be primary over b: higher
// confidence wins, and equal confidence goes to the record seen first.
func PreferPrimary(a types.ExtractedRecord, aSeq int, b types.ExtractedRecord, bSeq int) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return aSeq < bSeq
}

// openGroup is the fold accumulator for one cluster.
type openGroup struct {
	members  []member // first-seen order
	primary  int      // index into members
	strategy types.MatchStrategy
	dois     []string // normalized member DOIs
}

func newGroup(m member) *openGroup {
	g := &openGroup{}
	g.members = append(g.members, m)
	g.addDOI(m.rec.DOI)
	return g
}

func (g *openGroup) primaryRecord() types.ExtractedRecord {
	return g.members[g.primary].rec
}

func (g *openGroup) add(m member, strategy types.MatchStrategy) {
	g.members = append(g.members, m)
	g.addDOI(m.rec.DOI)
	if g.strategy == "" {
		g.strategy = strategy
	}
	cur := g.members[g.primary]
	if PreferPrimary(m.rec, m.seq, cur.rec, cur.seq) {
		g.primary = len(g.members) - 1
	}
}

func (g *openGroup) addDOI(doi string) {
	if d := NormalizeDOI(doi); d != "" && !slices.Contains(g.dois, d) {
		g.dois = append(g.dois, d)
	}
}

// rule is one pairwise matching test against a group primary.
type rule struct {
	strategy types.MatchStrategy
	fires    func(primary, rec types.ExtractedRecord) bool
}

// rules returns the pairwise rules below DOI matching, in precedence order.
func (e *Engine) rules() []rule {
	rs := []rule{
		{types.MatchTitleAuthor, func(p, r types.ExtractedRecord) bool {
			return TitleSimilarity(p.Title, r.Title) >= e.opts.TitleSimilarityThreshold &&
				AuthorSimilarity(p.Authors, r.Authors) >= e.opts.AuthorSimilarityThreshold
		}},
		{types.MatchURL, func(p, r types.ExtractedRecord) bool {
			u := NormalizeURL(p.URL)
			return u != "" && u == NormalizeURL(r.URL)
		}},
	}
	if e.opts.EnableFuzzyMatching {
		rs = append(rs, rule{types.MatchFuzzy, func(p, r types.ExtractedRecord) bool {
			return TitleSimilarity(p.Title, r.Title) >= e.fuzzyFloor
		}})
	}
	return rs
}

// DetectDuplicates partitions records into duplicate groups in a single
// left-to-right pass. Rules are tried in precedence order (DOI, title and
// author, URL, fuzzy title) and each rule scans the open groups in the
// order they were opened; the first hit attaches the record, otherwise it
// opens a new group. Groups are returned in opening order, singletons
// included.
func (e *Engine) DetectDuplicates(records []types.ExtractedRecord) []types.DuplicateGroup {
	members := make([]member, len(records))
	for i, r := range records {
		members[i] = member{rec: r, seq: i}
	}
	return toGroups(e.fold(members))
}

// fold runs the clustering pass over members in the given order.
func (e *Engine) fold(members []member) []*openGroup {
	rules := e.rules()
	var groups []*openGroup
	for _, m := range members {
		if g, strategy := e.place(groups, rules, m.rec); g != nil {
			g.add(m, strategy)
			continue
		}
		groups = append(groups, newGroup(m))
	}
	return groups
}

// place finds the group rec belongs to. A DOI shared with any member wins
// outright, so records with the same DOI always end up together. Under
// strict DOI matching a group whose DOIs all differ from rec's is closed
// to the weaker rules.
func (e *Engine) place(groups []*openGroup, rules []rule, rec types.ExtractedRecord) (*openGroup, types.MatchStrategy) {
	doi := NormalizeDOI(rec.DOI)
	if doi != "" {
		for _, g := range groups {
			if slices.Contains(g.dois, doi) {
				return g, types.MatchDOI
			}
		}
	}
	for _, r := range rules {
		for _, g := range groups {
			if e.opts.StrictDOIMatching && doi != "" && len(g.dois) > 0 {
				continue
			}
			if r.fires(g.primaryRecord(), rec) {
				return g, r.strategy
			}
		}
	}
	return nil, ""
}

func toGroups(open []*openGroup) []types.DuplicateGroup {
	groups := make([]types.DuplicateGroup, len(open))
	for i, g := range open {
		dg := types.DuplicateGroup{
			Primary:       g.members[g.primary].rec.Clone(),
			Duplicates:    []types.ExtractedRecord{},
			MergeStrategy: g.strategy,
		}
		for j, m := range g.members {
			if j != g.primary {
				dg.Duplicates = append(dg.Duplicates, m.rec.Clone())
			}
		}
		dg.Confidence = groupConfidence(dg)
		groups[i] = dg
	}
	return groups
}

// groupConfidence scales the members' mean confidence by the strength of
// the rule that formed the group. A singleton is as certain as its record.
func groupConfidence(g types.DuplicateGroup) float64 {
	if len(g.Duplicates) == 0 {
		return g.Primary.Confidence
	}
	var sum float64
	members := g.Members()
	for _, m := range members {
		sum += m.Confidence
	}
	mean := sum / float64(len(members))
	return math.Round(strategyStrength[g.MergeStrategy]*(0.5+0.5*mean)*10000) / 10000
}

// ShardFunc maps a record to a coarse partition key. Records in different
// shards are never compared.
type ShardFunc func(types.ExtractedRecord) string

// ByDecade shards records by publication decade ("2010s"); records without
// a year share the "unknown" shard.
func ByDecade(r types.ExtractedRecord) string {
	if r.Year == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d0s", r.Year/10)
}

// DetectDuplicatesSharded runs detection independently and concurrently
// per shard, then returns the groups ordered by the first-seen position of
// their earliest member. Within a shard the result matches DetectDuplicates
// on that shard's records in input order.
//
// Records in different shards are never compared, so sharding trades
// recall for parallelism: with ByDecade a 2019 preprint and its 2020
// publication, or a dated and an undated copy, stay in separate groups.
// Use DetectDuplicates when group membership must not depend on the shard
// function.
func (e *Engine) DetectDuplicatesSharded(ctx context.Context, records []types.ExtractedRecord, shard ShardFunc) ([]types.DuplicateGroup, error) {
	var keys []string
	byKey := make(map[string][]member)
	for i, r := range records {
		k := shard(r)
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], member{rec: r, seq: i})
	}

	results := make([][]*openGroup, len(keys))
	g, gCtx := errgroup.WithContext(ctx)
	for i, k := range keys {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = e.fold(byKey[k])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detecting duplicates: %w", err)
	}

	var all []*openGroup
	for _, r := range results {
		all = append(all, r...)
	}
	slices.SortFunc(all, func(a, b *openGroup) int {
		return a.members[0].seq - b.members[0].seq
	})
	return toGroups(all), nil
}

// Summary holds counts from a detection run.
type Summary struct {
	Records           int                         `json:"records" yaml:"records"`
	Groups            int                         `json:"groups" yaml:"groups"`
	DuplicatesRemoved int                         `json:"duplicates_removed" yaml:"duplicates_removed"`
	ByStrategy        map[types.MatchStrategy]int `json:"by_strategy,omitempty" yaml:"by_strategy,omitempty"`
}

// Summarize counts the records, groups, and duplicates in groups.
func Summarize(groups []types.DuplicateGroup) Summary {
	s := Summary{Groups: len(groups), ByStrategy: map[types.MatchStrategy]int{}}
	for _, g := range groups {
		s.Records += g.Size()
		s.DuplicatesRemoved += len(g.Duplicates)
		if g.MergeStrategy != "" {
			s.ByStrategy[g.MergeStrategy]++
		}
	}
	return s
}
