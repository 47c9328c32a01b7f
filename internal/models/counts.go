package models

// StatusCounts holds the number of individuals in each compartment,
// indexed by Status.
type StatusCounts [NumStatuses]int

// Total returns S+E+I+R+D.
func (c StatusCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Living returns the number of individuals that are not Dead.
func (c StatusCounts) Living() int {
	return c.Total() - c[Dead]
}

// Active returns the number of individuals still carrying the disease (E+I).
func (c StatusCounts) Active() int {
	return c[Exposed] + c[Infected]
}

// Map returns the counts keyed by wire code, the shape exposed to clients.
func (c StatusCounts) Map() map[string]int {
	m := make(map[string]int, NumStatuses)
	for _, s := range AllStatuses {
		m[s.Code()] = c[s]
	}
	return m
}

// Move records one individual moving from one compartment to another.
func (c *StatusCounts) Move(from, to Status) {
	if from == to {
		return
	}
	c[from]--
	c[to]++
}
