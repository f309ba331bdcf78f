package conserver

import (
	"encoding/json"
	"strconv"
)

const (
	chainKeyPrefix   = "chain:"
	linkKeyPrefix    = "link:"
	storageKeyPrefix = "storage:"
	dlqSuffix        = ":dlq"
	inFlightInfix    = ":inflight:"
)

// Chain is the durable definition of an ordered list of links together with the queues feeding it and the
// destinations that receive its output.
type Chain struct {
	Name          string   `json:"name"`
	Links         []string `json:"links"`
	IngressLists  []string `json:"ingress_lists"`
	IngressTopics []string `json:"ingress_topics,omitempty"`
	EgressLists   []string `json:"egress_lists"`
	EgressChains  []string `json:"egress_chains,omitempty"`
	Storages      []string `json:"storages"`
	Enabled       Flag     `json:"enabled"`
}

// StageDefinition binds a link or storage name to the module implementing it and the options it runs with.
type StageDefinition struct {
	Module  string       `json:"module"`
	Options StageOptions `json:"options,omitempty"`
}

// Flag is a boolean that is persisted as 0 or 1.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}

	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := string(b)
	switch s {
	case "1", "true", `"1"`, `"true"`:
		*f = true
		return nil
	case "0", "false", `"0"`, `"false"`, "null":
		*f = false
		return nil
	}

	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}

	*f = n != 0
	return nil
}

func (f Flag) String() string {
	return strconv.FormatBool(bool(f))
}

func ChainKey(name string) string {
	return chainKeyPrefix + name
}

func LinkKey(name string) string {
	return linkKeyPrefix + name
}

func StorageKey(name string) string {
	return storageKeyPrefix + name
}

// DLQName returns the dead letter queue that belongs to the ingress queue.
func DLQName(ingress string) string {
	return ingress + dlqSuffix
}

// InFlightName returns the list holding the values a consumer has popped from the queue but not yet acked.
func InFlightName(queue, consumer string) string {
	return queue + inFlightInfix + consumer
}
