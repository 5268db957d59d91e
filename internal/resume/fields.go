package resume

import "strings"

// Fields 是创建与更新时可提供的顶层字段。
// 指针为 nil 或切片为 nil 表示未提供；提供的字段整体替换旧值，不做深度合并。
type Fields struct {
	PersonalInfo   *PersonalInfo   `json:"personalInfo"`
	Summary        *string         `json:"summary"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         *Skills         `json:"skills"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
	LayoutType     *LayoutType     `json:"layoutType"`
}

// ApplyTo overwrites every provided section on doc.
func (f Fields) ApplyTo(doc *Document) {
	if f.PersonalInfo != nil {
		info := *f.PersonalInfo
		doc.PersonalInfo = &info
	}
	if f.Summary != nil {
		doc.Summary = *f.Summary
	}
	if f.Experience != nil {
		doc.Experience = append([]Experience(nil), f.Experience...)
	}
	if f.Education != nil {
		doc.Education = append([]Education(nil), f.Education...)
	}
	if f.Skills != nil {
		doc.Skills = Skills{
			Technical: append([]string(nil), f.Skills.Technical...),
			Soft:      append([]string(nil), f.Skills.Soft...),
		}
	}
	if f.Projects != nil {
		doc.Projects = append([]Project(nil), f.Projects...)
	}
	if f.Certifications != nil {
		doc.Certifications = append([]Certification(nil), f.Certifications...)
	}
	if f.LayoutType != nil {
		doc.LayoutType = *f.LayoutType
	}
}

// Normalize 为所有列表字段填充空值，并清理技能集合。
func (d *Document) Normalize() {
	if d.Experience == nil {
		d.Experience = []Experience{}
	}
	for i := range d.Experience {
		if d.Experience[i].Technologies == nil {
			d.Experience[i].Technologies = Technologies{}
		}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	for i := range d.Projects {
		if d.Projects[i].Technologies == nil {
			d.Projects[i].Technologies = Technologies{}
		}
	}
	if d.Certifications == nil {
		d.Certifications = []Certification{}
	}
	d.Skills.Technical = uniqueStrings(d.Skills.Technical)
	d.Skills.Soft = uniqueStrings(d.Skills.Soft)
	if strings.TrimSpace(string(d.LayoutType)) == "" {
		d.LayoutType = LayoutModern
	}
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		v := strings.TrimSpace(s)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
