package course

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("course not found")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrFileNotFound     = errors.New("file not found")
	ErrInfoNotFound     = errors.New("exercise user info not found")
	ErrNotInCourse      = errors.New("user does not belong to this course")
)

// CheckMember fails with ErrNotInCourse unless username is one of the course
// members; if teacherOnly is set, the member must additionally hold the
// teacher role. It must run before any membership-gated read or write.
func CheckMember(members []user.User, username string, teacherOnly bool) error {
	for _, m := range members {
		if m.Username == username {
			if teacherOnly && !m.IsTeacher() {
				return ErrNotInCourse
			}
			return nil
		}
	}
	return ErrNotInCourse
}

type (
	Repository interface {
		CreateCourse(c Course, creator user.User) (Course, error)
		GetCourseByID(id int) (Course, error)
		QueryCoursesByMember(username string) ([]Course, error)
		GetCourseMembers(courseID int) ([]user.User, error)
		AddCourseMembers(courseID int, userIDs ...int) error

		CreateExercise(ex Exercise) (Exercise, error)
		GetExerciseByID(id int) (Exercise, error)
		QueryExercisesByCourse(courseID int) ([]Exercise, error)

		CreateFile(f File) (File, error)
		GetFileByID(id int) (File, error)
		// QueryFilesByExercise returns the template files when ownerID is
		// nil, or the given user's submitted files otherwise.
		QueryFilesByExercise(exerciseID int, ownerID *int) ([]File, error)

		CreateExerciseUserInfo(eui ExerciseUserInfo) (ExerciseUserInfo, error)
		GetExerciseUserInfo(exerciseID int, username string) (ExerciseUserInfo, error)
		UpdateExerciseUserInfo(eui ExerciseUserInfo) (ExerciseUserInfo, error)
		QueryExerciseUserInfosByExercise(exerciseID int) ([]ExerciseUserInfo, error)

		CreateCommentThread(th CommentThread) (CommentThread, error)
		QueryCommentThreadsByFile(fileID int) ([]CommentThread, error)
	}

	// FileStore persists uploaded file content outside the database.
	FileStore interface {
		// Save writes content and returns its location for later retrieval.
		Save(courseID, exerciseID int, owner, filename string, r io.Reader) (string, error)
	}

	Service interface {
		Create(nc NewCourse, creator user.User) (Course, error)
		QueryByMember(username string) ([]Course, error)
		AddMembers(courseID int, requestUsername string, usernames ...string) ([]user.User, error)

		QueryExercises(courseID int, requestUsername string) ([]Exercise, error)
		CreateExercise(courseID int, requestUsername string, ne NewExercise) (Exercise, error)

		QueryFiles(exerciseID int, requestUsername string) ([]File, error)
		AddFile(exerciseID int, requestUsername, filename string, content io.Reader, template bool) (File, error)

		GetExerciseUserInfo(exerciseID int, username string) (ExerciseUserInfo, error)
		UpdateExerciseUserInfo(exerciseID int, username string, finished bool) (ExerciseUserInfo, error)
		GetAllStudentExerciseUserInfo(exerciseID int, requestUsername string) ([]ExerciseUserInfo, error)

		CreateCommentThread(fileID int, requestUsername string, nt NewCommentThread) (CommentThread, error)
		QueryCommentThreads(fileID int, requestUsername string) ([]CommentThread, error)
	}

	service struct {
		repo    Repository
		usrRepo user.Repository
		store   FileStore
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrRepo user.Repository, store FileStore) Service {
	return &service{
		repo:    repo,
		usrRepo: usrRepo,
		store:   store,
	}
}

// Create saves a new course; only teachers may create courses and the
// creator is enrolled as its first member.
func (svc *service) Create(nc NewCourse, creator user.User) (Course, error) {
	if !creator.IsTeacher() {
		return Course{}, ErrNotInCourse
	}
	now := time.Now().UTC()
	c := Course{
		Name:      nc.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateCourse(c, creator)
}

func (svc *service) QueryByMember(username string) ([]Course, error) {
	return svc.repo.QueryCoursesByMember(username)
}

// checkInCourse loads the course members and applies the membership check.
func (svc *service) checkInCourse(courseID int, username string, teacherOnly bool) error {
	members, err := svc.repo.GetCourseMembers(courseID)
	if err != nil {
		return err
	}
	return CheckMember(members, username, teacherOnly)
}

func (svc *service) AddMembers(courseID int, requestUsername string, usernames ...string) ([]user.User, error) {
	if _, err := svc.repo.GetCourseByID(courseID); err != nil {
		return nil, err
	}
	if err := svc.checkInCourse(courseID, requestUsername, true /* teacherOnly */); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(usernames))
	for _, uname := range usernames {
		usr, err := svc.usrRepo.GetUserByUsername(uname)
		if err != nil {
			return nil, errors.Wrapf(err, "finding user %q", uname)
		}
		ids = append(ids, usr.ID)
	}
	if err := svc.repo.AddCourseMembers(courseID, ids...); err != nil {
		return nil, err
	}
	return svc.repo.GetCourseMembers(courseID)
}

func (svc *service) QueryExercises(courseID int, requestUsername string) ([]Exercise, error) {
	if _, err := svc.repo.GetCourseByID(courseID); err != nil {
		return nil, err
	}
	if err := svc.checkInCourse(courseID, requestUsername, false); err != nil {
		return nil, err
	}
	return svc.repo.QueryExercisesByCourse(courseID)
}

func (svc *service) CreateExercise(courseID int, requestUsername string, ne NewExercise) (Exercise, error) {
	if _, err := svc.repo.GetCourseByID(courseID); err != nil {
		return Exercise{}, err
	}
	if err := svc.checkInCourse(courseID, requestUsername, true /* teacherOnly */); err != nil {
		return Exercise{}, err
	}

	now := time.Now().UTC()
	ex := Exercise{
		CourseID:  courseID,
		Name:      ne.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateExercise(ex)
}

// QueryFiles returns the requesting user's own files for the exercise, or the
// shared template when they have not submitted anything yet. The user's
// tracker record is created on first pull.
func (svc *service) QueryFiles(exerciseID int, requestUsername string) ([]File, error) {
	ex, err := svc.repo.GetExerciseByID(exerciseID)
	if err != nil {
		return nil, err
	}
	if err = svc.checkInCourse(ex.CourseID, requestUsername, false); err != nil {
		return nil, err
	}
	usr, err := svc.usrRepo.GetUserByUsername(requestUsername)
	if err != nil {
		return nil, errors.Wrap(err, "finding requesting user")
	}

	if err = svc.ensureExerciseUserInfo(ex, usr); err != nil {
		return nil, err
	}

	files, err := svc.repo.QueryFilesByExercise(exerciseID, &usr.ID)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		return files, nil
	}
	return svc.repo.QueryFilesByExercise(exerciseID, nil)
}

// ensureExerciseUserInfo lazily creates the (exercise, user) tracker record.
func (svc *service) ensureExerciseUserInfo(ex Exercise, usr user.User) error {
	if _, err := svc.repo.GetExerciseUserInfo(ex.ID, usr.Username); err != nil {
		if errors.Cause(err) != ErrInfoNotFound {
			return err
		}
		now := time.Now().UTC()
		_, err = svc.repo.CreateExerciseUserInfo(ExerciseUserInfo{
			ExerciseID: ex.ID,
			UserID:     usr.ID,
			User:       usr,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	}
	return nil
}

func (svc *service) AddFile(exerciseID int, requestUsername, filename string, content io.Reader, template bool) (File, error) {
	ex, err := svc.repo.GetExerciseByID(exerciseID)
	if err != nil {
		return File{}, err
	}
	if err = svc.checkInCourse(ex.CourseID, requestUsername, template /* teacherOnly */); err != nil {
		return File{}, err
	}
	usr, err := svc.usrRepo.GetUserByUsername(requestUsername)
	if err != nil {
		return File{}, errors.Wrap(err, "finding requesting user")
	}

	owner := usr.Username
	var ownerID *int
	if template {
		owner = "template"
	} else {
		ownerID = &usr.ID
	}

	path, err := svc.store.Save(ex.CourseID, ex.ID, owner, filename, content)
	if err != nil {
		return File{}, errors.Wrap(err, "saving file content")
	}

	now := time.Now().UTC()
	f := File{
		ExerciseID: exerciseID,
		OwnerID:    ownerID,
		Name:       filename,
		Path:       path,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateFile(f)
}

// GetExerciseUserInfo is a pure read of the (exercise, user) tracker record.
func (svc *service) GetExerciseUserInfo(exerciseID int, username string) (ExerciseUserInfo, error) {
	return svc.repo.GetExerciseUserInfo(exerciseID, username)
}

// UpdateExerciseUserInfo sets the completion flag on an existing tracker
// record. It fails with ErrInfoNotFound (and performs no write) when the
// record does not exist.
// Note: no membership check runs here; users update their own progress and
// the tracker is only addressable by (exercise, username).
func (svc *service) UpdateExerciseUserInfo(exerciseID int, username string, finished bool) (ExerciseUserInfo, error) {
	eui, err := svc.repo.GetExerciseUserInfo(exerciseID, username)
	if err != nil {
		return ExerciseUserInfo{}, err
	}
	eui.Finished = finished
	eui.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateExerciseUserInfo(eui)
}

// GetAllStudentExerciseUserInfo returns the student-only tracker records of
// an exercise; the requesting user must be a teacher in the exercise's
// course.
// An exercise with zero tracker records is reported as ErrExerciseNotFound:
// indistinguishable from a nonexistent exercise. Known issue, kept as-is.
func (svc *service) GetAllStudentExerciseUserInfo(exerciseID int, requestUsername string) ([]ExerciseUserInfo, error) {
	euis, err := svc.repo.QueryExerciseUserInfosByExercise(exerciseID)
	if err != nil {
		return nil, err
	}
	if len(euis) == 0 {
		return nil, ErrExerciseNotFound
	}

	ex, err := svc.repo.GetExerciseByID(exerciseID)
	if err != nil {
		return nil, err
	}
	if err = svc.checkInCourse(ex.CourseID, requestUsername, true /* teacherOnly */); err != nil {
		return nil, err
	}

	students := make([]ExerciseUserInfo, 0, len(euis))
	for _, eui := range euis {
		if !eui.User.IsTeacher() {
			students = append(students, eui)
		}
	}
	return students, nil
}

func (svc *service) CreateCommentThread(fileID int, requestUsername string, nt NewCommentThread) (CommentThread, error) {
	f, err := svc.repo.GetFileByID(fileID)
	if err != nil {
		return CommentThread{}, err
	}
	if err = svc.checkFileAccess(f, requestUsername); err != nil {
		return CommentThread{}, err
	}

	now := time.Now().UTC()
	th := CommentThread{
		FileID:    fileID,
		Line:      nt.Line,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, nc := range nt.Comments {
		th.Comments = append(th.Comments, Comment{
			Author:    requestUsername,
			Body:      nc.Body,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return svc.repo.CreateCommentThread(th)
}

func (svc *service) QueryCommentThreads(fileID int, requestUsername string) ([]CommentThread, error) {
	f, err := svc.repo.GetFileByID(fileID)
	if err != nil {
		return nil, err
	}
	if err = svc.checkFileAccess(f, requestUsername); err != nil {
		return nil, err
	}
	return svc.repo.QueryCommentThreadsByFile(fileID)
}

func (svc *service) checkFileAccess(f File, username string) error {
	ex, err := svc.repo.GetExerciseByID(f.ExerciseID)
	if err != nil {
		return err
	}
	return svc.checkInCourse(ex.CourseID, username, false)
}
