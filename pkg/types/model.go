package types

// ModelKind 枚举 - 模型集合类型
type ModelKind string

const (
	ModelKindReasoner  ModelKind = "reasoner"
	ModelKindTarget    ModelKind = "target"
	ModelKindComposite ModelKind = "composite"
)

// RefKind 枚举 - 组合模型引用类型
type RefKind string

const (
	RefKindReasoner RefKind = "reasoner"
	RefKindTarget   RefKind = "target"
)

// DefaultModelFormat 目标模型的默认接口格式
const DefaultModelFormat = "openai"

// ReasonerModel - 推理模型配置，负责生成中间推理过程
type ReasonerModel struct {
	Name              string `json:"name" yaml:"name"`
	ModelID           string `json:"model_id" yaml:"model_id"`
	APIKey            string `json:"api_key" yaml:"api_key"`
	APIBaseURL        string `json:"api_base_url" yaml:"api_base_url"`
	APIRequestAddress string `json:"api_request_address" yaml:"api_request_address"`
	IsOriginReasoning bool   `json:"is_origin_reasoning" yaml:"is_origin_reasoning"`
	IsValid           bool   `json:"is_valid" yaml:"is_valid"`
	ProxyOpen         bool   `json:"proxy_open" yaml:"proxy_open"`
}

// TargetModel - 目标模型配置，负责生成最终回答
type TargetModel struct {
	Name              string `json:"name" yaml:"name"`
	ModelID           string `json:"model_id" yaml:"model_id"`
	APIKey            string `json:"api_key" yaml:"api_key"`
	APIBaseURL        string `json:"api_base_url" yaml:"api_base_url"`
	APIRequestAddress string `json:"api_request_address" yaml:"api_request_address"`
	ModelFormat       string `json:"model_format" yaml:"model_format"`
	IsValid           bool   `json:"is_valid" yaml:"is_valid"`
	ProxyOpen         bool   `json:"proxy_open" yaml:"proxy_open"`
}

// CompositeModel - 组合模型配置，将一个推理模型与一个目标模型配对，
// 对外暴露为单个逻辑模型
type CompositeModel struct {
	Name        string `json:"name" yaml:"name"`
	ModelID     string `json:"model_id" yaml:"model_id"`
	ReasonerRef string `json:"reasoner_ref" yaml:"reasoner_ref"`
	TargetRef   string `json:"target_ref" yaml:"target_ref"`
	IsValid     bool   `json:"is_valid" yaml:"is_valid"`
}

// Violation - 引用校验违规项
type Violation struct {
	CompositeName  string  `json:"composite_name"`
	MissingRefKind RefKind `json:"missing_ref_kind"`
	MissingRefName string  `json:"missing_ref_name"`
}
