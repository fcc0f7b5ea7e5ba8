// Package bookingflow drives one public booking attempt through its steps
// service, staff, datetime, client, otp and success.
package bookingflow

// Step is a state of a wizard.
type Step string

const (
	StepService  Step = "service"
	StepStaff    Step = "staff"
	StepDatetime Step = "datetime"
	StepClient   Step = "client"
	StepOTP      Step = "otp"
	StepSuccess  Step = "success"
)

// Graph declares a wizard as data: its ordered steps and the allowed edges
// between them. Edges pointing to earlier steps are backward navigation.
type Graph struct {
	Order []Step
	Edges map[Step][]Step
}

// BookingGraph is the public booking wizard. Success has no outgoing edges.
var BookingGraph = Graph{
	Order: []Step{StepService, StepStaff, StepDatetime, StepClient, StepOTP, StepSuccess},
	Edges: map[Step][]Step{
		StepService:  {StepStaff},
		StepStaff:    {StepDatetime, StepService},
		StepDatetime: {StepClient, StepStaff, StepService},
		StepClient:   {StepOTP, StepDatetime, StepStaff, StepService},
		StepOTP:      {StepSuccess, StepClient, StepDatetime, StepStaff, StepService},
	},
}

// Allows reports whether from -> to is an edge of the graph.
func (g Graph) Allows(from, to Step) bool {
	for _, s := range g.Edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (g Graph) index(s Step) int {
	for i, o := range g.Order {
		if o == s {
			return i
		}
	}
	return -1
}

// Before reports whether a comes strictly before b in the wizard order.
func (g Graph) Before(a, b Step) bool {
	ia, ib := g.index(a), g.index(b)
	return ia >= 0 && ib >= 0 && ia < ib
}

// Terminal reports whether s has no outgoing edges.
func (g Graph) Terminal(s Step) bool {
	return len(g.Edges[s]) == 0
}
