package selector

// Term maps a word that may appear in a question to a field of the profile, addressed
// by a chain of object keys.
type Term struct {
	Term string   `yaml:"term"`
	Path []string `yaml:"path"`
}

// NamedList derives one term per record of an array field: the record's NameKey value
// becomes the term and the record itself the selected value.
type NamedList struct {
	Field   string `yaml:"field"`
	NameKey string `yaml:"name_key"`
}

type Vocabulary struct {
	Terms []Term      `yaml:"terms"`
	Named []NamedList `yaml:"named"`
}

// DefaultVocabulary covers the résumé-style profile layout the assistant ships with.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Terms: []Term{
			{Term: "教育", Path: []string{"教育背景"}},
			{Term: "学校", Path: []string{"教育背景", "学校"}},
			{Term: "专业", Path: []string{"教育背景", "专业"}},
			{Term: "工作", Path: []string{"工作经历"}},
			{Term: "实习", Path: []string{"工作经历"}},
			{Term: "项目", Path: []string{"项目经历"}},
			{Term: "技能", Path: []string{"专业技能"}},
			{Term: "个人", Path: []string{"个人总结"}},
			{Term: "联系", Path: []string{"邮箱"}},
			{Term: "邮箱", Path: []string{"邮箱"}},
			{Term: "年龄", Path: []string{"年龄"}},
			{Term: "性别", Path: []string{"性别"}},
		},
		Named: []NamedList{
			{Field: "项目经历", NameKey: "项目名称"},
			{Field: "工作经历", NameKey: "公司"},
		},
	}
}
