package relation

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLookup(kind string, refs []EntityRef, err error) Lookup {
	return LookupFunc{
		LookupKind: kind,
		Fn: func(context.Context, Anchor, int64) ([]EntityRef, error) {
			return refs, err
		},
	}
}

func TestAggregatorFanOut(t *testing.T) {
	a := NewAggregator()
	a.RegisterLookup(fixedLookup(KindProjects, []EntityRef{
		{ID: 1, Kind: KindProjects, Name: "Launch"},
	}, nil))
	a.RegisterLookup(fixedLookup(KindLeads, []EntityRef{
		{ID: 2, Kind: KindLeads, Name: "Jordan"},
		{ID: 3, Kind: KindLeads, Name: "Sam"},
	}, nil))

	graph, err := a.Related(context.Background(), AnchorUser, 7)
	require.NoError(t, err)

	assert.Equal(t, AnchorUser, graph.Anchor)
	assert.Equal(t, int64(7), graph.AnchorID)
	assert.Len(t, graph.Related[KindProjects], 1)
	assert.Len(t, graph.Related[KindLeads], 2)
	assert.Empty(t, graph.Degraded)

	totals := graph.TotalsByKind()
	assert.Equal(t, 1, totals[KindProjects])
	assert.Equal(t, 2, totals[KindLeads])
}

func TestAggregatorDegradesFailedKind(t *testing.T) {
	a := NewAggregator()
	a.RegisterLookup(fixedLookup(KindProjects, []EntityRef{{ID: 1, Kind: KindProjects}}, nil))
	a.RegisterLookup(fixedLookup(KindWorkflows, nil, errors.New("workflow module down")))

	graph, err := a.Related(context.Background(), AnchorUser, 7)
	require.NoError(t, err)

	// Failed kind is present but empty
	refs, ok := graph.Related[KindWorkflows]
	require.True(t, ok, "degraded kind must still appear in the graph")
	assert.Empty(t, refs)
	assert.Equal(t, []string{KindWorkflows}, graph.Degraded)

	// Healthy kind is unaffected
	assert.Len(t, graph.Related[KindProjects], 1)

	stats := a.Stats()
	assert.Equal(t, int64(1), stats.FailedLookups)
	assert.Equal(t, int64(1), stats.FailuresByKind[KindWorkflows])
}

func TestAggregatorContainsPanic(t *testing.T) {
	a := NewAggregator()
	a.RegisterLookup(LookupFunc{
		LookupKind: KindAnalytics,
		Fn: func(context.Context, Anchor, int64) ([]EntityRef, error) {
			panic("lookup bug")
		},
	})
	a.RegisterLookup(fixedLookup(KindPosts, []EntityRef{{ID: 4, Kind: KindPosts}}, nil))

	graph, err := a.Related(context.Background(), AnchorProject, 3)
	require.NoError(t, err)

	assert.Empty(t, graph.Related[KindAnalytics])
	assert.Equal(t, []string{KindAnalytics}, graph.Degraded)
	assert.Len(t, graph.Related[KindPosts], 1)
}

func TestAggregatorUnknownAnchor(t *testing.T) {
	a := NewAggregator()

	_, err := a.Related(context.Background(), Anchor("galaxy"), 1)
	require.Error(t, err)

	var unknown *ErrUnknownAnchor
	assert.True(t, errors.As(err, &unknown))
	assert.Equal(t, Anchor("galaxy"), unknown.Anchor)
}

func TestAggregatorLookupTimeout(t *testing.T) {
	a := NewAggregator(WithLookupTimeout(10 * time.Millisecond))
	a.RegisterLookup(LookupFunc{
		LookupKind: KindAuraChats,
		Fn: func(ctx context.Context, _ Anchor, _ int64) ([]EntityRef, error) {
			select {
			case <-time.After(time.Second):
				return []EntityRef{{ID: 1}}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})

	graph, err := a.Related(context.Background(), AnchorLead, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{KindAuraChats}, graph.Degraded)
}

func TestAggregatorNilRefsBecomeEmpty(t *testing.T) {
	a := NewAggregator()
	a.RegisterLookup(fixedLookup(KindEmailCampaigns, nil, nil))

	graph, err := a.Related(context.Background(), AnchorUser, 1)
	require.NoError(t, err)

	refs, ok := graph.Related[KindEmailCampaigns]
	require.True(t, ok)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestRegisterLookupReplaces(t *testing.T) {
	a := NewAggregator()
	a.RegisterLookup(fixedLookup(KindProjects, []EntityRef{{ID: 1}}, nil))
	a.RegisterLookup(fixedLookup(KindProjects, []EntityRef{{ID: 2}}, nil))

	graph, err := a.Related(context.Background(), AnchorUser, 1)
	require.NoError(t, err)
	require.Len(t, graph.Related[KindProjects], 1)
	assert.Equal(t, int64(2), graph.Related[KindProjects][0].ID)
}

func TestStaticLookup(t *testing.T) {
	s := NewStaticLookup(KindLeads)
	s.Add(AnchorUser, 7,
		EntityRef{ID: 1, Kind: KindLeads, Name: "Jordan"},
		EntityRef{ID: 2, Kind: KindLeads, Name: "Sam"},
	)
	s.Add(AnchorProject, 3, EntityRef{ID: 9, Kind: KindLeads})

	refs, err := s.Related(context.Background(), AnchorUser, 7)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	names := []string{refs[0].Name, refs[1].Name}
	sort.Strings(names)
	assert.Equal(t, []string{"Jordan", "Sam"}, names)

	// Unknown anchor ID yields an empty set, not an error
	refs, err = s.Related(context.Background(), AnchorUser, 999)
	require.NoError(t, err)
	assert.Empty(t, refs)

	s.Remove(AnchorUser, 7)
	refs, _ = s.Related(context.Background(), AnchorUser, 7)
	assert.Empty(t, refs)
}

func TestAggregatorAnchorHelpers(t *testing.T) {
	a := NewAggregator()
	a.RegisterLookup(LookupFunc{LookupKind: KindWorkflows, Fn: func(_ context.Context, anchor Anchor, id int64) ([]EntityRef, error) {
		return []EntityRef{{ID: id, Kind: KindWorkflows, Name: string(anchor)}}, nil
	}})

	graph, err := a.UserRelated(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "user", graph.Related[KindWorkflows][0].Name)

	graph, err = a.ProjectRelated(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "project", graph.Related[KindWorkflows][0].Name)

	graph, err = a.LeadRelated(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, "lead", graph.Related[KindWorkflows][0].Name)
}
