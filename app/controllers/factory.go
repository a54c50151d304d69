package controllers

import (
	"go.uber.org/dig"

	"github.com/echolist/backend-go/internal/services"
)

// deps 控制器共享的服务集合
// Beego 每个请求都会重建控制器实例，服务从这里取。
var deps struct {
	auth        *services.AuthService
	users       *services.UserService
	connections *services.ConnectionService
	sections    *services.SectionService
	items       *services.ItemService
	search      *services.SearchService
	home        *services.HomeService
	ai          *services.AIService
}

// InitDependencies 从DI容器装配控制器依赖，启动时调用一次
func InitDependencies(container *dig.Container) error {
	return container.Invoke(func(
		auth *services.AuthService,
		users *services.UserService,
		connections *services.ConnectionService,
		sections *services.SectionService,
		items *services.ItemService,
		search *services.SearchService,
		home *services.HomeService,
		ai *services.AIService,
	) {
		deps.auth = auth
		deps.users = users
		deps.connections = connections
		deps.sections = sections
		deps.items = items
		deps.search = search
		deps.home = home
		deps.ai = ai
	})
}
