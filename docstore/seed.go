package docstore

import (
	"github.com/gamma-omg/profile-mcp/jsonval"
)

const placeholderID = "sample_profiles"

const placeholderProfiles = `{
  "张三": {
    "姓名": "张三",
    "昵称": ["老三", "小三"],
    "年龄": 25,
    "职业": "程序员",
    "爱好": ["编程", "游戏", "阅读"],
    "联系方式": {"电话": "123-456-7890", "邮箱": "zhangsan@example.com"}
  },
  "李四": {
    "姓名": "李四",
    "昵称": ["老四", "小四"],
    "年龄": 30,
    "职业": "设计师",
    "爱好": ["绘画", "摄影"],
    "联系方式": {"电话": "098-765-4321", "邮箱": "lisi@example.com"}
  },
  "王五": {
    "姓名": "王五",
    "昵称": ["老五", "小五"],
    "年龄": 28,
    "职业": "教师",
    "爱好": ["读书", "旅游", "音乐"],
    "联系方式": {"电话": "555-123-4567", "邮箱": "wangwu@example.com"}
  }
}`

// placeholderDocuments is the fixed set served when the document root holds nothing.
func placeholderDocuments() []Document {
	content, err := jsonval.Parse([]byte(placeholderProfiles))
	if err != nil {
		panic("docstore: invalid placeholder profiles: " + err.Error())
	}

	return []Document{newDocument(placeholderID, content, "Placeholder person profiles")}
}
