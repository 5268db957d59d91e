package layout

import (
	"strings"

	"resumeBuilder/internal/resume"
)

// PlaceholderName 在 fullName 为空时显示。
const PlaceholderName = "Your Name"

// ContactItem 是页眉中的一项联系方式。
type ContactItem struct {
	Kind  string
	Value string
	Href  string
}

type ExperienceItem struct {
	Company      string
	Position     string
	Duration     string
	Description  []string
	Technologies []string
}

type EducationItem struct {
	Institution    string
	Degree         string
	Field          string
	GraduationYear string
}

type ProjectItem struct {
	Name         string
	Description  []string
	Technologies []string
	Link         string
	GitHub       string
}

type CertificationItem struct {
	Name   string
	Issuer string
	Date   string
}

// View 是四种版式共享的规范化数据。模板只负责排版，不做任何判空以外的逻辑。
type View struct {
	Layout         resume.LayoutType
	Name           string
	Contact        []ContactItem
	Summary        string
	Experience     []ExperienceItem
	Education      []EducationItem
	Technical      []string
	Soft           []string
	Projects       []ProjectItem
	Certifications []CertificationItem
}

// HasSkills reports whether either skill list has entries.
func (v View) HasSkills() bool {
	return len(v.Technical) > 0 || len(v.Soft) > 0
}

// Build 将文档规范化为 View：修剪空白、剔除全空条目、拆分技术栈，并解析版式。
func Build(doc *resume.Document) View {
	v := View{Layout: doc.LayoutType.OrDefault()}

	var info resume.PersonalInfo
	if doc.PersonalInfo != nil {
		info = *doc.PersonalInfo
	}
	v.Name = clean(info.FullName)
	if v.Name == "" {
		v.Name = PlaceholderName
	}
	v.Contact = contactItems(info)
	v.Summary = clean(doc.Summary)

	for _, e := range doc.Experience {
		item := ExperienceItem{
			Company:      clean(e.Company),
			Position:     clean(e.Position),
			Duration:     clean(e.Duration),
			Description:  paragraphs(e.Description),
			Technologies: splitTechnologies(e.Technologies),
		}
		if item.Company == "" && item.Position == "" && item.Duration == "" &&
			len(item.Description) == 0 && len(item.Technologies) == 0 {
			continue
		}
		v.Experience = append(v.Experience, item)
	}

	for _, e := range doc.Education {
		item := EducationItem{
			Institution:    clean(e.Institution),
			Degree:         clean(e.Degree),
			Field:          clean(e.Field),
			GraduationYear: clean(e.GraduationYear),
		}
		if item == (EducationItem{}) {
			continue
		}
		v.Education = append(v.Education, item)
	}

	v.Technical = cleanList(doc.Skills.Technical)
	v.Soft = cleanList(doc.Skills.Soft)

	for _, p := range doc.Projects {
		item := ProjectItem{
			Name:         clean(p.Name),
			Description:  paragraphs(p.Description),
			Technologies: splitTechnologies(p.Technologies),
			Link:         clean(p.Link),
			GitHub:       clean(p.GitHub),
		}
		if item.Name == "" && len(item.Description) == 0 && len(item.Technologies) == 0 &&
			item.Link == "" && item.GitHub == "" {
			continue
		}
		v.Projects = append(v.Projects, item)
	}

	for _, c := range doc.Certifications {
		item := CertificationItem{
			Name:   clean(c.Name),
			Issuer: clean(c.Issuer),
			Date:   clean(c.Date),
		}
		if item == (CertificationItem{}) {
			continue
		}
		v.Certifications = append(v.Certifications, item)
	}

	return v
}

func contactItems(info resume.PersonalInfo) []ContactItem {
	var out []ContactItem
	add := func(kind, value, href string) {
		if value == "" {
			return
		}
		out = append(out, ContactItem{Kind: kind, Value: value, Href: href})
	}

	email := clean(info.Email)
	add("email", email, prefixed("mailto:", email))
	add("phone", clean(info.Phone), "")
	add("location", clean(info.Location), "")
	add("portfolio", clean(info.Portfolio), link(clean(info.Portfolio)))
	add("linkedin", clean(info.LinkedIn), link(clean(info.LinkedIn)))
	add("github", clean(info.GitHub), link(clean(info.GitHub)))
	return out
}

// link 为缺少协议的地址补全 https://。
func link(raw string) string {
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

func prefixed(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if v := clean(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// splitTechnologies 对每个元素再次按逗号拆分，兼容 ["Go, Rust"] 这类输入。
func splitTechnologies(in resume.Technologies) []string {
	var out []string
	for _, t := range in {
		out = append(out, resume.SplitList(t)...)
	}
	return out
}

func paragraphs(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•*"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
