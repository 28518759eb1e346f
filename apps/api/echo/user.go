package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type userApi struct {
	svc       user.Service
	courseSvc course.Service
	validate  *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.Service, courseSvc course.Service, validate *validator.Validate) {
	api := userApi{
		svc:       svc,
		courseSvc: courseSvc,
		validate:  validate,
	}

	g.POST("/login", api.login)
	g.POST("/register", api.register)
	g.POST("/teachers/register", api.registerTeacher)
	g.GET("/csrf", api.csrf)
	g.GET("/users", api.query) // open listing, no auth

	ag := g.Group("", jwt)
	ag.GET("/currentuser", api.currentUser)
}

type (
	// user views; the fields exposed depend on who is asking.
	userGeneralView struct {
		ID       int      `json:"id"`
		Username string   `json:"username"`
		Name     string   `json:"name"`
		LastName string   `json:"lastName"`
		Roles    []string `json:"roles"`
	}

	userEmailView struct {
		userGeneralView
		Email string `json:"email"`
	}

	userCourseView struct {
		userEmailView
		Courses []course.Course `json:"courses"`
	}

	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"jwtToken"`
	}
)

func newUserGeneralView(usr user.User) userGeneralView {
	return userGeneralView{
		ID:       usr.ID,
		Username: usr.Username,
		Name:     usr.Name,
		LastName: usr.LastName,
		Roles:    usr.Roles,
	}
}

func newUserEmailView(usr user.User) userEmailView {
	return userEmailView{
		userGeneralView: newUserGeneralView(usr),
		Email:           usr.Email,
	}
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	claims, err := authenticate(data.Username, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) register(ctx echo.Context) error {
	return api.doRegister(ctx, false)
}

func (api *userApi) registerTeacher(ctx echo.Context) error {
	return api.doRegister(ctx, true)
}

func (api *userApi) doRegister(ctx echo.Context, teacher bool) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(data, teacher)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newUserEmailView(usr))
}

// csrf exists for clients that probe it before logging in; auth is entirely
// token based so there is no cookie to protect.
func (api *userApi) csrf(ctx echo.Context) error {
	return ctx.NoContent(http.StatusOK)
}

func (api *userApi) currentUser(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByUsername(claims.Subject)
	if err != nil {
		return err
	}
	courses, err := api.courseSvc.QueryByMember(usr.Username)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, userCourseView{
		userEmailView: newUserEmailView(usr),
		Courses:       courses,
	})
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll()
	if err != nil {
		return err
	}
	views := make([]userGeneralView, 0, len(users))
	for _, usr := range users {
		views = append(views, newUserGeneralView(usr))
	}
	return ctx.JSON(http.StatusOK, views)
}
