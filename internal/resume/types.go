package resume

import (
	"encoding/json"
	"strings"
	"time"
)

// LayoutType 标识简历的版式。
type LayoutType string

const (
	LayoutModern   LayoutType = "modern"
	LayoutClassic  LayoutType = "classic"
	LayoutMinimal  LayoutType = "minimal"
	LayoutCreative LayoutType = "creative"
)

// Layouts lists every supported layout in display order.
var Layouts = []LayoutType{LayoutModern, LayoutClassic, LayoutMinimal, LayoutCreative}

// Valid 判断版式是否属于四个枚举值之一。
func (l LayoutType) Valid() bool {
	switch l {
	case LayoutModern, LayoutClassic, LayoutMinimal, LayoutCreative:
		return true
	}
	return false
}

// OrDefault 未识别的版式一律回落到 modern。
func (l LayoutType) OrDefault() LayoutType {
	normalized := LayoutType(strings.ToLower(strings.TrimSpace(string(l))))
	if normalized.Valid() {
		return normalized
	}
	return LayoutModern
}

// Document 表示一份完整的简历文档。
type Document struct {
	ID             string          `json:"id"`
	OwnerID        uint            `json:"ownerId"`
	PersonalInfo   *PersonalInfo   `json:"personalInfo"`
	Summary        string          `json:"summary"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         Skills          `json:"skills"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
	LayoutType     LayoutType      `json:"layoutType"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// Version is the compare-and-swap token used by Store.Update.
	Version int `json:"-"`
}

type PersonalInfo struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	Portfolio string `json:"portfolio"`
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
}

type Experience struct {
	Company      string       `json:"company"`
	Position     string       `json:"position"`
	Duration     string       `json:"duration"`
	Description  string       `json:"description"`
	Technologies Technologies `json:"technologies"`
}

type Education struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	Field          string `json:"field"`
	GraduationYear string `json:"graduationYear"`
}

type Skills struct {
	Technical []string `json:"technical"`
	Soft      []string `json:"soft"`
}

type Project struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Technologies Technologies `json:"technologies"`
	Link         string       `json:"link"`
	GitHub       string       `json:"github"`
}

type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

// Technologies 接受逗号分隔的字符串或字符串数组，统一解码为列表。
type Technologies []string

// UnmarshalJSON accepts "Go, Rust", ["Go", "Rust"] or null.
func (t *Technologies) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*t = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*t = SplitList(raw)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

// MarshalJSON always encodes a list, never null.
func (t Technologies) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// SplitList 按逗号切分并去除空白项。
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
