package model

// Reserved step names. Only KindForName compares against them.
const (
	AgendaStepName = "Agenda"
	ReportStepName = "Workshop Report"
)

type StepKind int

const (
	StepKindTemplate StepKind = iota
	StepKindAgenda
	StepKindReport
)

// Capabilities describe what the progression engine and the session may do
// with a step of a given kind.
type Capabilities struct {
	Lockable bool
	Counted  bool
	Editable bool
}

func KindForName(name string) StepKind {
	switch name {
	case AgendaStepName:
		return StepKindAgenda
	case ReportStepName:
		return StepKindReport
	default:
		return StepKindTemplate
	}
}

func (k StepKind) Capabilities() Capabilities {
	switch k {
	case StepKindAgenda, StepKindReport:
		return Capabilities{}
	default:
		return Capabilities{Lockable: true, Counted: true, Editable: true}
	}
}

func (k StepKind) String() string {
	switch k {
	case StepKindAgenda:
		return "agenda"
	case StepKindReport:
		return "report"
	default:
		return "template"
	}
}
