package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crosserrors "github.com/suitecore/crosscoord/pkg/crosscoord/errors"
)

func TestAllBuiltinOperationsRegistered(t *testing.T) {
	r := NewRegistry()

	ops := []string{
		OpUserProjectAssociation,
		OpLeadConversion,
		OpPostSocialAssociation,
		OpEmailCampaignSending,
		OpWorkflowExecution,
		OpUniverseInstanceCreation,
		OpMediaFolderAssociation,
		OpAnalyticsMetricCreation,
		OpAuraChatCreation,
		OpAdsCampaignCreation,
		OpAIGenerationCreation,
		OpCategoryAssociation,
		OpIntegrationActivation,
		OpNodeRedFlowExecution,
		OpProductProjectAssociation,
		OpActivityRegistration,
		OpEntityDeletion,
		OpEntityUpdate,
	}
	for _, op := range ops {
		assert.True(t, r.Supports(op), "expected %s to be registered", op)
	}
	assert.Equal(t, 18, r.Stats().RegisteredRules)
}

func TestValidateUnsupportedOperation(t *testing.T) {
	r := NewRegistry()

	result := r.Validate(context.Background(), "teleportation", nil, nil)
	assert.False(t, result.Valid())
	assert.True(t, result.Unsupported())

	messages := result.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "operation 'teleportation' is not supported", messages[0])
}

func TestValidateLeadConversion(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	// Fully qualified lead passes
	result := r.Validate(ctx, OpLeadConversion, map[string]any{
		"lead_qualified": true,
		"lead_email":     "jordan@example.com",
		"lead_name":      "Jordan",
	}, nil)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Messages())

	// Unqualified duplicate lead collects multiple violations
	result = r.Validate(ctx, OpLeadConversion, map[string]any{
		"lead_qualified": false,
		"lead_duplicate": true,
	}, nil)
	assert.False(t, result.Valid())
	assert.Contains(t, result.Violations, "lead must be qualified for conversion")
	assert.Contains(t, result.Violations, "lead must have email and name for conversion")
	assert.Contains(t, result.Violations, "duplicate lead cannot be converted")
}

func TestValidateUserProjectAssociationLimits(t *testing.T) {
	r := NewRegistry()

	result := r.Validate(context.Background(), OpUserProjectAssociation, map[string]any{
		"user_active":        true,
		"project_status":     "active",
		"user_project_count": float64(10),
		"user_max_projects":  float64(10),
	}, nil)
	assert.False(t, result.Valid())
	assert.Contains(t, result.Violations, "user has exceeded the maximum number of projects")
}

func TestValidateRulePanicContained(t *testing.T) {
	r := NewRegistry()
	r.Register("explosive_operation", func(_, _ map[string]any) []string {
		panic("rule bug")
	})

	result := r.Validate(context.Background(), "explosive_operation", nil, nil)
	assert.False(t, result.Valid())
	require.Error(t, result.Failure)

	var internal *crosserrors.InternalError
	assert.True(t, errors.As(result.Failure, &internal))

	messages := result.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "internal error during validation", messages[0])

	assert.Equal(t, int64(1), r.Stats().InternalFailures)
}

func TestRegisterReplacesRule(t *testing.T) {
	r := NewRegistry()

	r.Register(OpLeadConversion, func(_, _ map[string]any) []string {
		return []string{"always blocked"}
	})

	result := r.Validate(context.Background(), OpLeadConversion, map[string]any{
		"lead_qualified": true,
		"lead_email":     "a@b.c",
		"lead_name":      "A",
	}, nil)
	assert.Equal(t, []string{"always blocked"}, result.Violations)
}

func TestValidateBatch(t *testing.T) {
	r := NewRegistry()

	results := r.ValidateBatch(context.Background(), []BatchRequest{
		{Operation: OpLeadConversion, Data: map[string]any{
			"lead_qualified": true,
			"lead_email":     "a@b.c",
			"lead_name":      "A",
		}},
		{Operation: "nonexistent"},
		{Operation: OpEntityDeletion, Data: map[string]any{
			"user_active":             true,
			"entity_has_dependencies": true,
		}},
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Valid())
	assert.True(t, results[1].Unsupported())
	assert.False(t, results[2].Valid())
	assert.Contains(t, results[2].Violations, "entity cannot be deleted because it has dependencies")
}

func TestStatsCounters(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.Validate(ctx, OpLeadConversion, map[string]any{}, nil)
	r.Validate(ctx, "unknown", nil, nil)

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.TotalValidations)
	assert.Equal(t, int64(1), stats.Unsupported)
	assert.Greater(t, stats.TotalViolations, int64(0))
}

func TestClearCacheWithoutCache(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.ClearCache())
}
