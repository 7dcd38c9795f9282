package validation

// Operations validated by the built-in rule set. Each one guards a
// cross-module action before the owning module commits it.
const (
	OpUserProjectAssociation    = "user_project_association"
	OpLeadConversion            = "lead_conversion"
	OpPostSocialAssociation     = "post_social_association"
	OpEmailCampaignSending      = "email_campaign_sending"
	OpWorkflowExecution         = "workflow_execution"
	OpUniverseInstanceCreation  = "universe_instance_creation"
	OpMediaFolderAssociation    = "media_folder_association"
	OpAnalyticsMetricCreation   = "analytics_metric_creation"
	OpAuraChatCreation          = "aura_chat_creation"
	OpAdsCampaignCreation       = "ads_campaign_creation"
	OpAIGenerationCreation      = "ai_generation_creation"
	OpCategoryAssociation       = "category_association"
	OpIntegrationActivation     = "integration_activation"
	OpNodeRedFlowExecution      = "nodered_flow_execution"
	OpProductProjectAssociation = "product_project_association"
	OpActivityRegistration      = "activity_registration"
	OpEntityDeletion            = "entity_deletion"
	OpEntityUpdate              = "entity_update"
)

// builtinRules maps every supported operation to its rule function.
func builtinRules() map[string]Rule {
	return map[string]Rule{
		OpUserProjectAssociation:    validateUserProjectAssociation,
		OpLeadConversion:            validateLeadConversion,
		OpPostSocialAssociation:     validatePostSocialAssociation,
		OpEmailCampaignSending:      validateEmailCampaignSending,
		OpWorkflowExecution:         validateWorkflowExecution,
		OpUniverseInstanceCreation:  validateUniverseInstanceCreation,
		OpMediaFolderAssociation:    validateMediaFolderAssociation,
		OpAnalyticsMetricCreation:   validateAnalyticsMetricCreation,
		OpAuraChatCreation:          validateAuraChatCreation,
		OpAdsCampaignCreation:       validateAdsCampaignCreation,
		OpAIGenerationCreation:      validateAIGenerationCreation,
		OpCategoryAssociation:       validateCategoryAssociation,
		OpIntegrationActivation:     validateIntegrationActivation,
		OpNodeRedFlowExecution:      validateNodeRedFlowExecution,
		OpProductProjectAssociation: validateProductProjectAssociation,
		OpActivityRegistration:      validateActivityRegistration,
		OpEntityDeletion:            validateEntityDeletion,
		OpEntityUpdate:              validateEntityUpdate,
	}
}

func validateUserProjectAssociation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to be associated with projects")
	}
	status := stringField(data, "project_status")
	if status == "archived" || status == "cancelled" {
		errs = append(errs, "project must be active to associate users")
	}
	if intField(data, "user_project_count") >= intFieldDefault(data, "user_max_projects", maxInt) {
		errs = append(errs, "user has exceeded the maximum number of projects")
	}
	if intField(data, "project_member_count") >= intFieldDefault(data, "project_max_members", maxInt) {
		errs = append(errs, "project has exceeded the maximum number of team members")
	}
	return errs
}

func validateLeadConversion(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "lead_qualified") {
		errs = append(errs, "lead must be qualified for conversion")
	}
	if stringField(data, "lead_email") == "" || stringField(data, "lead_name") == "" {
		errs = append(errs, "lead must have email and name for conversion")
	}
	if boolField(data, "lead_duplicate") {
		errs = append(errs, "duplicate lead cannot be converted")
	}
	if boolField(data, "lead_converting") {
		errs = append(errs, "lead is already being converted")
	}
	return errs
}

func validatePostSocialAssociation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "account_active") {
		errs = append(errs, "social account must be active to publish posts")
	}
	if !boolField(data, "post_publishable") {
		errs = append(errs, "post must be in a publishable status")
	}
	if !boolFieldDefault(data, "post_type_supported", true) {
		errs = append(errs, "post type is not compatible with the social account platform")
	}
	if intField(data, "account_daily_post_count") >= intFieldDefault(data, "account_daily_post_limit", maxInt) {
		errs = append(errs, "social account has exceeded the daily post limit")
	}
	if intField(data, "post_content_length") > intFieldDefault(data, "account_max_post_length", maxInt) {
		errs = append(errs, "post exceeds the platform character limit")
	}
	return errs
}

func validateEmailCampaignSending(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "campaign_sendable") {
		errs = append(errs, "campaign must be in a sendable status")
	}
	if !boolField(data, "list_active") {
		errs = append(errs, "email list must be active to send campaigns")
	}
	if intField(data, "list_subscriber_count") < intField(data, "campaign_min_subscribers") {
		errs = append(errs, "email list must have enough subscribers for sending")
	}
	if intField(data, "campaign_sent_count") >= intFieldDefault(data, "campaign_max_sends", maxInt) {
		errs = append(errs, "campaign has exceeded the maximum number of sends")
	}
	if stringField(data, "campaign_subject") == "" || stringField(data, "campaign_content") == "" {
		errs = append(errs, "campaign must have a subject and content for sending")
	}
	return errs
}

func validateWorkflowExecution(data, ctx map[string]any) []string {
	var errs []string
	if !boolField(data, "workflow_active") {
		errs = append(errs, "workflow must be active for execution")
	}
	if boolField(data, "workflow_in_maintenance") {
		errs = append(errs, "workflow is under maintenance and cannot be executed")
	}
	if intField(data, "workflow_action_count") == 0 {
		errs = append(errs, "workflow must have actions defined for execution")
	}
	if intField(data, "workflow_execution_count") >= intFieldDefault(data, "workflow_max_executions", maxInt) {
		errs = append(errs, "workflow has exceeded the maximum number of executions")
	}
	if _, ok := ctx["user_id"]; ok && !boolFieldDefault(data, "workflow_executable_by_user", true) {
		errs = append(errs, "user does not have permission to execute this workflow")
	}
	return errs
}

func validateUniverseInstanceCreation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to create universe instances")
	}
	if intField(data, "user_instance_count") >= intFieldDefault(data, "user_max_instances", maxInt) {
		errs = append(errs, "user has exceeded the maximum number of universe instances")
	}
	if emptyField(data, "instance_configuration") {
		errs = append(errs, "instance must have a valid configuration")
	}
	if boolField(data, "instance_duplicate") {
		errs = append(errs, "duplicate instance cannot be created")
	}
	return errs
}

func validateMediaFolderAssociation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "folder_active") {
		errs = append(errs, "folder must be active to associate media")
	}
	if !boolField(data, "media_ready") {
		errs = append(errs, "media must be ready to be associated with folders")
	}
	if intField(data, "folder_media_count") >= intFieldDefault(data, "folder_max_media", maxInt) {
		errs = append(errs, "folder has exceeded the maximum number of media items")
	}
	if !boolFieldDefault(data, "media_type_supported", true) {
		errs = append(errs, "media type is not compatible with the folder type")
	}
	return errs
}

func validateAnalyticsMetricCreation(data, ctx map[string]any) []string {
	var errs []string
	if stringField(data, "metric_name") == "" {
		errs = append(errs, "metric must have a valid name")
	}
	if data["metric_value"] == nil {
		errs = append(errs, "metric must have a valid value")
	}
	if boolField(data, "metric_duplicate") {
		errs = append(errs, "duplicate metric cannot be created")
	}
	if len(ctx) == 0 {
		errs = append(errs, "metric must have a valid context")
	}
	return errs
}

func validateAuraChatCreation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to create chats")
	}
	if intField(data, "user_chat_count") >= intFieldDefault(data, "user_max_chats", maxInt) {
		errs = append(errs, "user has exceeded the maximum number of chats")
	}
	if emptyField(data, "chat_configuration") {
		errs = append(errs, "chat must have a valid configuration")
	}
	if boolField(data, "chat_duplicate") {
		errs = append(errs, "duplicate chat cannot be created")
	}
	return errs
}

func validateAdsCampaignCreation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to create ad campaigns")
	}
	if intField(data, "user_campaign_count") >= intFieldDefault(data, "user_max_campaigns", maxInt) {
		errs = append(errs, "user has exceeded the maximum number of ad campaigns")
	}
	if floatField(data, "campaign_budget") <= 0 {
		errs = append(errs, "campaign must have a valid budget")
	}
	if emptyField(data, "campaign_target_audience") {
		errs = append(errs, "campaign must have a target audience defined")
	}
	return errs
}

func validateAIGenerationCreation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to create generations")
	}
	if intField(data, "user_generation_count") >= intFieldDefault(data, "user_max_generations", maxInt) {
		errs = append(errs, "user has exceeded the maximum number of generations")
	}
	if stringField(data, "generation_prompt") == "" {
		errs = append(errs, "generation must have a valid prompt")
	}
	if stringField(data, "generation_type") == "" {
		errs = append(errs, "generation must have a valid type")
	}
	return errs
}

func validateCategoryAssociation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "category_active") {
		errs = append(errs, "category must be active for association")
	}
	if !boolFieldDefault(data, "entity_type_supported", true) {
		errs = append(errs, "category does not support the given entity type")
	}
	if intField(data, "category_association_count") >= intFieldDefault(data, "category_max_associations", maxInt) {
		errs = append(errs, "category has exceeded the maximum number of associations")
	}
	return errs
}

func validateIntegrationActivation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to activate integrations")
	}
	if !boolField(data, "integration_available") {
		errs = append(errs, "integration is not available")
	}
	if emptyField(data, "integration_configuration") {
		errs = append(errs, "integration must have a valid configuration")
	}
	if intField(data, "user_integration_count") >= intFieldDefault(data, "user_max_integrations", maxInt) {
		errs = append(errs, "user has exceeded the maximum number of integrations")
	}
	return errs
}

func validateNodeRedFlowExecution(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to execute flows")
	}
	if !boolField(data, "flow_active") {
		errs = append(errs, "flow must be active for execution")
	}
	if intField(data, "flow_node_count") == 0 {
		errs = append(errs, "flow must have nodes defined for execution")
	}
	if !boolFieldDefault(data, "flow_executable_by_user", true) {
		errs = append(errs, "user does not have permission to execute this flow")
	}
	return errs
}

func validateProductProjectAssociation(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "product_active") {
		errs = append(errs, "product must be active for association")
	}
	if !boolField(data, "project_active") {
		errs = append(errs, "project must be active for association")
	}
	if !boolFieldDefault(data, "product_compatible", true) {
		errs = append(errs, "product is not compatible with the project type")
	}
	if intField(data, "project_product_count") >= intFieldDefault(data, "project_max_products", maxInt) {
		errs = append(errs, "project has exceeded the maximum number of products")
	}
	return errs
}

func validateActivityRegistration(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to register activities")
	}
	if stringField(data, "activity_type") == "" {
		errs = append(errs, "activity must have a valid type")
	}
	if stringField(data, "activity_description") == "" {
		errs = append(errs, "activity must have a valid description")
	}
	if boolField(data, "activity_duplicate") {
		errs = append(errs, "duplicate activity cannot be registered")
	}
	return errs
}

func validateEntityDeletion(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to delete entities")
	}
	if !boolFieldDefault(data, "user_can_delete", true) {
		errs = append(errs, "user does not have permission to delete this entity type")
	}
	if boolField(data, "entity_has_dependencies") {
		errs = append(errs, "entity cannot be deleted because it has dependencies")
	}
	return errs
}

func validateEntityUpdate(data, _ map[string]any) []string {
	var errs []string
	if !boolField(data, "user_active") {
		errs = append(errs, "user must be active to update entities")
	}
	if !boolFieldDefault(data, "user_can_update", true) {
		errs = append(errs, "user does not have permission to update this entity type")
	}
	if emptyField(data, "changes") {
		errs = append(errs, "no valid changes were provided")
	}
	if boolField(data, "violates_business_rules") {
		errs = append(errs, "changes violate business rules")
	}
	return errs
}

const maxInt = int64(1<<63 - 1)

// Field helpers tolerate both native Go values and the float64/nil
// shapes produced by JSON decoding. Missing fields take the zero value
// unless a default is given.

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func boolFieldDefault(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func intField(m map[string]any, key string) int64 {
	return intFieldDefault(m, key, 0)
}

func intFieldDefault(m map[string]any, key string, def int64) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return def
	}
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func emptyField(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
