package router

import (
	"github.com/echolist/backend-go/app/controllers"
	"github.com/echolist/backend-go/app/middleware"
	"github.com/echolist/backend-go/internal/auth"
	"github.com/beego/beego/v2/server/web"
)

// Init 注册全部路由与过滤器
// /api/auth/* 之外的业务接口都要求已认证。
func Init(jwtService *auth.JWTService) {
	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	authFilter := middleware.JWTAuthFilter(jwtService)
	web.InsertFilter("/api/users/*", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/connections", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/connections/*", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/sections", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/sections/*", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/items", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/items/*", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/search/*", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/ai/*", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/home", web.BeforeRouter, authFilter)
	web.InsertFilter("/api/auth/me", web.BeforeRouter, authFilter)

	// 健康检查与指标
	healthController := &controllers.HealthController{}
	web.Router("/health", healthController, "get:Health")
	web.Router("/metrics", healthController, "get:Metrics")

	// 认证
	authController := &controllers.AuthController{}
	web.Router("/api/auth/register", authController, "post:Register")
	web.Router("/api/auth/login", authController, "post:Login")
	web.Router("/api/auth/me", authController, "get:Me")

	// 用户资料
	userController := &controllers.UserController{}
	web.Router("/api/users/profile", userController, "get:GetProfile;put:UpdateProfile")

	// 用户关系
	connectionController := &controllers.ConnectionController{}
	web.Router("/api/connections", connectionController, "get:List;post:Create")
	web.Router("/api/connections/:id", connectionController, "get:Get;delete:Delete")
	web.Router("/api/connections/:id/type", connectionController, "put:UpdateType")
	web.Router("/api/connections/:id/accept", connectionController, "post:Accept")

	// 分区与访问规则
	sectionController := &controllers.SectionController{}
	web.Router("/api/sections", sectionController, "get:List;post:Create")
	web.Router("/api/sections/accessible", sectionController, "get:ListAccessible")
	web.Router("/api/sections/:id", sectionController, "get:Get;put:Update;delete:Delete")
	web.Router("/api/sections/:id/access-rules", sectionController, "get:ListAccessRules;put:SetAccessRule")
	web.Router("/api/sections/:id/items", sectionController, "get:ListItems")

	// 条目
	itemController := &controllers.ItemController{}
	web.Router("/api/items", itemController, "post:Create")
	web.Router("/api/items/voice", itemController, "post:CreateVoice")
	web.Router("/api/items/:id", itemController, "get:Get;put:Update;delete:Delete")
	web.Router("/api/items/:id/complete", itemController, "post:Complete")

	// 检索与首页
	searchController := &controllers.SearchController{}
	web.Router("/api/search/items", searchController, "post:SearchItems")
	web.Router("/api/search/chunks", searchController, "post:SearchChunks")
	web.Router("/api/search/keyword", searchController, "post:SearchKeyword")

	homeController := &controllers.HomeController{}
	web.Router("/api/home", homeController, "get:Feed")

	// 内容向量化
	aiController := &controllers.AIController{}
	web.Router("/api/ai/vectorize", aiController, "post:Vectorize")
}
