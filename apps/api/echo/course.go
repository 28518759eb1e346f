package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type courseApi struct {
	svc      course.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc course.Service, usrSvc user.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.queryMine)
	cg.POST("", api.create)
	cg.POST("/:courseId/users", api.addMembers)
	cg.GET("/:courseId/exercises", api.queryExercises)
	cg.POST("/:courseId/exercises", api.createExercise)

	eg := g.Group("/exercises", jwt)
	eg.GET("/:exerciseId/files", api.queryFiles)
	eg.POST("/:exerciseId/files", api.uploadFile)
	eg.POST("/:exerciseId/files/template", api.uploadTemplate)
	eg.GET("/:exerciseId/info", api.getInfo)
	eg.PUT("/:exerciseId/info", api.updateInfo)
	eg.GET("/:exerciseId/info/teacher", api.teacherInfo)

	fg := g.Group("/files", jwt)
	fg.GET("/:fileId/comments", api.queryThreads)
	fg.POST("/:fileId/comments", api.createThread)
}

// exerciseUserInfoView hides the user's email and password hash from the
// progress listings.
type exerciseUserInfoView struct {
	ID         int             `json:"id"`
	ExerciseID int             `json:"exercise_id"`
	User       userGeneralView `json:"user"`
	Finished   bool            `json:"finished"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func newExerciseUserInfoView(eui course.ExerciseUserInfo) exerciseUserInfoView {
	return exerciseUserInfoView{
		ID:         eui.ID,
		ExerciseID: eui.ExerciseID,
		User:       newUserGeneralView(eui.User),
		Finished:   eui.Finished,
		CreatedAt:  eui.CreatedAt,
		UpdatedAt:  eui.UpdatedAt,
	}
}

func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

func (api *courseApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.QueryByMember(claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	creator, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	c, err := api.svc.Create(data, creator)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) addMembers(ctx echo.Context) error {
	courseID, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}
	var data course.AddMembers
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	members, err := api.svc.AddMembers(courseID, claims.Subject, data.Usernames...)
	if err != nil {
		return err
	}
	views := make([]userGeneralView, 0, len(members))
	for _, m := range members {
		views = append(views, newUserGeneralView(m))
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *courseApi) queryExercises(ctx echo.Context) error {
	courseID, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	exercises, err := api.svc.QueryExercises(courseID, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, exercises)
}

func (api *courseApi) createExercise(ctx echo.Context) error {
	courseID, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}
	var data course.NewExercise
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ex, err := api.svc.CreateExercise(courseID, claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *courseApi) queryFiles(ctx echo.Context) error {
	exerciseID, err := pathID(ctx, "exerciseId")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	files, err := api.svc.QueryFiles(exerciseID, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, files)
}

func (api *courseApi) uploadFile(ctx echo.Context) error {
	return api.doUpload(ctx, false)
}

func (api *courseApi) uploadTemplate(ctx echo.Context) error {
	return api.doUpload(ctx, true)
}

func (api *courseApi) doUpload(ctx echo.Context, template bool) error {
	exerciseID, err := pathID(ctx, "exerciseId")
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.AddFile(exerciseID, claims.Subject, fh.Filename, src, template)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *courseApi) getInfo(ctx echo.Context) error {
	exerciseID, err := pathID(ctx, "exerciseId")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	eui, err := api.svc.GetExerciseUserInfo(exerciseID, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newExerciseUserInfoView(eui))
}

func (api *courseApi) updateInfo(ctx echo.Context) error {
	exerciseID, err := pathID(ctx, "exerciseId")
	if err != nil {
		return err
	}
	var data course.UpdateExerciseUserInfo
	if err = ctx.Bind(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	eui, err := api.svc.UpdateExerciseUserInfo(exerciseID, claims.Subject, data.Finished)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newExerciseUserInfoView(eui))
}

func (api *courseApi) teacherInfo(ctx echo.Context) error {
	exerciseID, err := pathID(ctx, "exerciseId")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	euis, err := api.svc.GetAllStudentExerciseUserInfo(exerciseID, claims.Subject)
	if err != nil {
		return err
	}
	views := make([]exerciseUserInfoView, 0, len(euis))
	for _, eui := range euis {
		views = append(views, newExerciseUserInfoView(eui))
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *courseApi) queryThreads(ctx echo.Context) error {
	fileID, err := pathID(ctx, "fileId")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	threads, err := api.svc.QueryCommentThreads(fileID, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, threads)
}

func (api *courseApi) createThread(ctx echo.Context) error {
	fileID, err := pathID(ctx, "fileId")
	if err != nil {
		return err
	}
	var data course.NewCommentThread
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	th, err := api.svc.CreateCommentThread(fileID, claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, th)
}
