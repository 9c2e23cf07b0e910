package sequence

import (
	"fmt"
	"slices"
)

// OrderPolicy decides what Load does with elements whose delays decrease.
// Recorded sequences are always ordered; imported ones may not be.
type OrderPolicy int

const (
	// OrderAsIs replays loaded elements in the order given.
	OrderAsIs OrderPolicy = iota
	// OrderSort stable-sorts loaded elements by delay.
	OrderSort
	// OrderReject fails the load with ErrInvalidSequenceFormat.
	OrderReject
)

var orderPolicyNames = map[OrderPolicy]string{
	OrderAsIs:   "as-is",
	OrderSort:   "sort",
	OrderReject: "reject",
}

func (p OrderPolicy) String() string {
	if s, ok := orderPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("OrderPolicy(%d)", int(p))
}

// ParseOrderPolicy maps a config value to a policy. The empty string is
// OrderAsIs.
func ParseOrderPolicy(s string) (OrderPolicy, error) {
	if s == "" {
		return OrderAsIs, nil
	}
	for p, name := range orderPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return OrderAsIs, fmt.Errorf("unknown order policy %q: must be one of as-is, sort, reject", s)
}

func (p OrderPolicy) apply(elements []Element) ([]Element, error) {
	switch p {
	case OrderSort:
		slices.SortStableFunc(elements, func(a, b Element) int {
			switch {
			case a.Delay < b.Delay:
				return -1
			case a.Delay > b.Delay:
				return 1
			}
			return 0
		})
	case OrderReject:
		for i := 1; i < len(elements); i++ {
			if elements[i].Delay < elements[i-1].Delay {
				return nil, fmt.Errorf("%w: element %d delay %d precedes element %d delay %d",
					ErrInvalidSequenceFormat, i, elements[i].Delay, i-1, elements[i-1].Delay)
			}
		}
	}
	return elements, nil
}
