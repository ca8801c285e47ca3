package jira

import (
	"encoding/json"
	"fmt"
)

type searchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
}

type searchResponse struct {
	Issues     []issue `json:"issues"`
	Total      int     `json:"total"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
}

// issue keeps fields raw because the epic fields are instance-specific
// custom field ids.
type issue struct {
	Key    string                     `json:"key"`
	Self   string                     `json:"self"`
	Fields map[string]json.RawMessage `json:"fields"`
}

type status struct {
	Name string `json:"name"`
}

type person struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

func (i issue) stringField(name string) (string, error) {
	raw, ok := i.Fields[name]
	if !ok || isNull(raw) {
		return "", nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("field %s of %s: %w", name, i.Key, err)
	}
	return value, nil
}

func (i issue) statusName() (string, error) {
	raw, ok := i.Fields["status"]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s status
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field status of %s: %w", i.Key, err)
	}
	return s.Name, nil
}

func (i issue) assignee() (*string, error) {
	raw, ok := i.Fields["assignee"]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var p person
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("field assignee of %s: %w", i.Key, err)
	}
	if p.DisplayName == "" {
		return nil, nil
	}
	return &p.DisplayName, nil
}

// linkedKey reads an epic reference field. Jira Server stores the epic link
// as a plain issue key; some custom link fields hold an object with a key.
func (i issue) linkedKey(name string) string {
	raw, ok := i.Fields[name]
	if !ok || isNull(raw) {
		return ""
	}
	var key string
	if err := json.Unmarshal(raw, &key); err == nil {
		return key
	}
	var object struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &object); err == nil {
		return object.Key
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
