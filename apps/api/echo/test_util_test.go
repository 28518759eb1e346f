package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	filestore "github.com/trezcool/darasa/storage/files"
)

var (
	usrRepo    user.Repository
	courseRepo course.Repository
	usrSvc     user.Service
	courseSvc  course.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	core.Conf.Debug = false
	core.Conf.TestMode = true
	if wd, err := filepath.Abs(filepath.Join("..", "..", "..")); err == nil {
		core.Conf.WorkDir = wd // assets/ lookup during email rendering
	}

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	courseRepo = dummydb.NewCourseRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc = user.NewService(usrRepo, mailSvc)

	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New() failed: %v", err)
	}
	courseSvc = course.NewService(courseRepo, usrRepo, store)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "TEST : ", log.LstdFlags),
		core.Conf,
	)
	logger.Enable(false)

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			UserSvc:        usrSvc,
			CourseSvc:      courseSvc,
			Validate:       validate,
			Translator:     translator,
		},
	)
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func createUser(t *testing.T, name, lastName, uname, email, pwd string, roles []string) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Username:  uname,
		Email:     email,
		Name:      name,
		LastName:  lastName,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := usrRepo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func createStudent(t *testing.T, uname string) user.User {
	return createUser(t, "Student", "Mock", uname, uname+"@test.cd", "LobiMakasi", []string{user.RoleStudent})
}

func createTeacher(t *testing.T, uname string) user.User {
	return createUser(t, "Teacher", "Mock", uname, uname+"@test.cd", "LobiMakasi", user.AllRoles)
}

func createCourse(t *testing.T, name string, creator user.User) course.Course {
	now := time.Now().UTC()
	c, err := courseRepo.CreateCourse(course.Course{Name: name, CreatedAt: now, UpdatedAt: now}, creator)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func createExercise(t *testing.T, courseID int, name string) course.Exercise {
	now := time.Now().UTC()
	ex, err := courseRepo.CreateExercise(course.Exercise{CourseID: courseID, Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateExercise() failed: %v", err)
	}
	return ex
}

func enroll(t *testing.T, courseID int, users ...user.User) {
	ids := make([]int, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	if err := courseRepo.AddCourseMembers(courseID, ids...); err != nil {
		t.Fatalf("AddCourseMembers() failed: %v", err)
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func newUploadRequest(t *testing.T, method, path, token, filename, content string) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() failed: %v", err)
	}
	if _, err = io.WriteString(fw, content); err != nil {
		t.Fatalf("writing file content failed: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("closing multipart writer failed: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = make([]interface{}, 0) // encode empty lists as [], never null
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func Test_marchallList(t *testing.T) {
	// handlers serialize empty result sets as [], the helper must match
	if got := string(marchallList(t)); got != "[]" {
		t.Errorf("failed! marchallList(t) = %s; want []", got)
	}
	if got := string(marchallList(t, httpErr{Error: "lol"})); got != `[{"error":"lol"}]` {
		t.Errorf(`failed! marchallList(t, httpErr) = %s; want [{"error":"lol"}]`, got)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(tt.wantData)),
			B:        difflib.SplitLines(rec.Body.String()),
			FromFile: "want",
			ToFile:   "got",
			Context:  2,
		})
		t.Errorf("failed! data mismatch:\n%s", diff)
	}
}
