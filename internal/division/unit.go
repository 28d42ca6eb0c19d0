// 包 division：行政区划数据模型与树构建，纯内存计算，不做任何 I/O
package division

import "strings"

// Level：行政层级标签
// 背景：两级行政架构下常见取值为 province/commune；其他层级（如历史数据中的 district）原样透传
type Level string

const (
	LevelProvince Level = "province"
	LevelCommune  Level = "commune"
)

// Unit：扁平的行政单元记录（来自存储层）
// 约束：Code 全局唯一；ParentCode 为 nil 表示顶层单元；其余描述字段原样透传
type Unit struct {
	Code        string            `json:"code"`
	ParentCode  *string           `json:"parentCode"`
	Level       Level             `json:"level"`
	Name        string            `json:"name,omitempty"`
	EnglishName string            `json:"englishName,omitempty"`
	FullName    string            `json:"fullName,omitempty"`
	Decree      string            `json:"decree,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

// Parent：返回上级代码；未设置或为空白时返回 false
func (u Unit) Parent() (string, bool) {
	if u.ParentCode == nil {
		return "", false
	}
	p := strings.TrimSpace(*u.ParentCode)
	if p == "" {
		return "", false
	}
	return p, true
}

// StrPtr：便于构造 ParentCode
func StrPtr(s string) *string { return &s }

// Province：省级单位
type Province struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	EnglishName string            `json:"englishName,omitempty"`
	FullName    string            `json:"fullName,omitempty"`
	Decree      string            `json:"decree,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

// AsUnit：省级单位映射为顶层 Unit（无上级）
func (p Province) AsUnit() Unit {
	return Unit{
		Code:        p.Code,
		Level:       LevelProvince,
		Name:        p.Name,
		EnglishName: p.EnglishName,
		FullName:    p.FullName,
		Decree:      p.Decree,
		Attrs:       p.Attrs,
	}
}

// Commune：乡级单位（xã / phường / đặc khu），隶属于某个省
type Commune struct {
	Code         string            `json:"code"`
	ProvinceCode string            `json:"provinceCode"`
	Name         string            `json:"name"`
	EnglishName  string            `json:"englishName,omitempty"`
	FullName     string            `json:"fullName,omitempty"`
	Kind         string            `json:"kind,omitempty"`
	Decree       string            `json:"decree,omitempty"`
	Attrs        map[string]string `json:"attrs,omitempty"`
}

// AsUnit：乡级单位映射为 commune 层级 Unit，上级为所属省；Kind 放入 Attrs
func (c Commune) AsUnit() Unit {
	u := Unit{
		Code:        c.Code,
		Level:       LevelCommune,
		Name:        c.Name,
		EnglishName: c.EnglishName,
		FullName:    c.FullName,
		Decree:      c.Decree,
		Attrs:       c.Attrs,
	}
	if c.ProvinceCode != "" {
		u.ParentCode = StrPtr(c.ProvinceCode)
	}
	if c.Kind != "" {
		attrs := make(map[string]string, len(c.Attrs)+1)
		for k, v := range c.Attrs {
			attrs[k] = v
		}
		attrs["kind"] = c.Kind
		u.Attrs = attrs
	}
	return u
}
