package support

type Status string

const (
	StatusOpen          Status = "open"
	StatusReplied       Status = "replied"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

var validNext = map[Status]map[Status]bool{
	StatusOpen:          {StatusReplied: true, StatusInvestigating: true, StatusResolved: true, StatusClosed: true},
	StatusReplied:       {StatusInvestigating: true, StatusResolved: true, StatusClosed: true},
	StatusInvestigating: {StatusReplied: true, StatusResolved: true, StatusClosed: true},
	StatusResolved:      {StatusClosed: true, StatusInvestigating: true},
	StatusClosed:        {},
}

// Machine is the ticket transition table. Closed is final unless AllowReopen is set.
type Machine struct {
	AllowReopen bool
}

func (m Machine) CanTransition(from, to Status) bool {
	if from == StatusClosed && to == StatusOpen {
		return m.AllowReopen
	}
	return validNext[from][to]
}
