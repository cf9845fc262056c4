package xcollect

import "maps"

// AuthUser 当前登录用户。
type AuthUser struct {
	ID         string
	Name       string
	Attributes map[string]any
}

// AuthData auth 面板数据。
type AuthData struct {
	Name     string         `json:"name"`
	ShowName bool           `json:"show_name"`
	User     map[string]any `json:"user"`
}

// AuthCollector 报告当前用户。user 在 Collect 时调用，请求末尾的登录状态才是准确的。
type AuthCollector struct {
	user     func() (AuthUser, bool)
	showName bool
}

// NewAuth 创建 auth 采集器，user 为 nil 时始终报告访客。
func NewAuth(user func() (AuthUser, bool), showName bool) *AuthCollector {
	return &AuthCollector{user: user, showName: showName}
}

// Name 返回 "auth"。
func (c *AuthCollector) Name() string { return "auth" }

// Collect 返回 AuthData，未登录时 name 为 "Guest"、user 为 nil。
func (c *AuthCollector) Collect() any {
	data := AuthData{Name: "Guest", ShowName: c.showName}
	if c.user == nil {
		return data
	}
	u, ok := c.user()
	if !ok {
		return data
	}

	data.Name = u.Name
	if data.Name == "" {
		data.Name = u.ID
	}
	data.User = maps.Clone(u.Attributes)
	if data.User == nil {
		data.User = make(map[string]any, 2)
	}
	data.User["id"] = u.ID
	if u.Name != "" {
		data.User["name"] = u.Name
	}
	return data
}
