package config

import "fmt"

// 构建时通过 -ldflags "-X" 注入
var (
	Version    string = "dev"
	CommitHash string = ""
)

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	return Version == "dev"
}

// VersionString 用于启动日志和 --version 输出
func VersionString() string {
	commit := CommitHash
	if commit == "" {
		commit = "n/a"
	}
	return fmt.Sprintf("%s (%s)", Version, commit)
}
