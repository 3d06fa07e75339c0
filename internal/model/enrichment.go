package model

// Seniority is the normalized seniority level of a posting.
type Seniority string

const (
	SeniorityIntern    Seniority = "intern"
	SeniorityJunior    Seniority = "junior"
	SeniorityMid       Seniority = "mid"
	SenioritySenior    Seniority = "senior"
	SeniorityStaff     Seniority = "staff"
	SeniorityPrincipal Seniority = "principal"
	SeniorityLead      Seniority = "lead"
	SeniorityManager   Seniority = "manager"
	SeniorityDirector  Seniority = "director"
	SeniorityVP        Seniority = "vp"
	SeniorityCLevel    Seniority = "c_level"
	SeniorityUnknown   Seniority = "unknown"
)

// Function is the normalized primary job function of a posting.
type Function string

const (
	FunctionEngineering Function = "engineering"
	FunctionResearch    Function = "research"
	FunctionMLAI        Function = "ml_ai"
	FunctionProduct     Function = "product"
	FunctionDesign      Function = "design"
	FunctionSales       Function = "sales"
	FunctionMarketing   Function = "marketing"
	FunctionOperations  Function = "operations"
	FunctionFinance     Function = "finance"
	FunctionLegal       Function = "legal"
	FunctionPeople      Function = "people"
	FunctionSecurity    Function = "security"
	FunctionData        Function = "data"
	FunctionSupport     Function = "support"
	FunctionOther       Function = "other"
)

// RemotePolicy is the normalized remote-work policy of a posting.
type RemotePolicy string

const (
	RemotePolicyRemote  RemotePolicy = "remote"
	RemotePolicyHybrid  RemotePolicy = "hybrid"
	RemotePolicyOnsite  RemotePolicy = "onsite"
	RemotePolicyUnknown RemotePolicy = "unknown"
)

// Enrichment holds the structured attributes inferred from a posting's raw
// text by the completion service. Enum fields resolve to their "unknown"
// value rather than empty when undeterminable; list fields may be empty but
// never nil once persisted.
type Enrichment struct {
	NormalizedTitle    string
	Seniority          Seniority
	Function           Function
	TeamArea           string
	IsLeadership       bool
	ExperienceYearsMin *int // nil = not mentioned
	RemotePolicy       RemotePolicy
	TechStack          []string
	Keywords           []string
	NotableSignals     []string
	SalaryMin          *int
	SalaryMax          *int
	SalaryCurrency     string
}
