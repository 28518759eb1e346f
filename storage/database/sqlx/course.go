package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type (
	courseRow struct {
		ID        int       `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	exerciseRow struct {
		ID        int       `db:"id"`
		CourseID  int       `db:"course_id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	fileRow struct {
		ID         int        `db:"id"`
		ExerciseID int        `db:"exercise_id"`
		OwnerID    null.Int64 `db:"owner_id"`
		Name       string     `db:"name"`
		Path       string     `db:"path"`
		CreatedAt  time.Time  `db:"created_at"`
		UpdatedAt  time.Time  `db:"updated_at"`
	}

	euiRow struct {
		ID         int       `db:"id"`
		ExerciseID int       `db:"exercise_id"`
		UserID     int       `db:"user_id"`
		Finished   bool      `db:"finished"`
		CreatedAt  time.Time `db:"created_at"`
		UpdatedAt  time.Time `db:"updated_at"`

		User userRow `db:"u"`
	}

	threadRow struct {
		ID        int       `db:"id"`
		FileID    int       `db:"file_id"`
		Line      int       `db:"line"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	commentRow struct {
		ID        int       `db:"id"`
		ThreadID  int       `db:"thread_id"`
		Author    string    `db:"author"`
		Body      string    `db:"body"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

func (r courseRow) unpack() course.Course {
	return course.Course{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r exerciseRow) unpack() course.Exercise {
	return course.Exercise{ID: r.ID, CourseID: r.CourseID, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r fileRow) unpack() course.File {
	f := course.File{
		ID:         r.ID,
		ExerciseID: r.ExerciseID,
		Name:       r.Name,
		Path:       r.Path,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.OwnerID.Valid {
		owner := int(r.OwnerID.Int64)
		f.OwnerID = &owner
	}
	return f
}

func (r euiRow) unpack() course.ExerciseUserInfo {
	return course.ExerciseUserInfo{
		ID:         r.ID,
		ExerciseID: r.ExerciseID,
		UserID:     r.UserID,
		User:       r.User.unpack(),
		Finished:   r.Finished,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r threadRow) unpack() course.CommentThread {
	return course.CommentThread{ID: r.ID, FileID: r.FileID, Line: r.Line, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r commentRow) unpack() course.Comment {
	return course.Comment{ID: r.ID, ThreadID: r.ThreadID, Author: r.Author, Body: r.Body, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

const euiSelect = `SELECT eui.id, eui.exercise_id, eui.user_id, eui.finished, eui.created_at, eui.updated_at,
	u.id AS "u.id", u.username AS "u.username", u.email AS "u.email", u.name AS "u.name",
	u.last_name AS "u.last_name", u.roles AS "u.roles", u.password_hash AS "u.password_hash",
	u.created_at AS "u.created_at", u.updated_at AS "u.updated_at"
	FROM exercise_user_info eui JOIN "user" u ON u.id = eui.user_id`

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func trapNoRows(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo *courseRepository) CreateCourse(c course.Course, creator user.User) (course.Course, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO course (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`
	if err = tx.QueryRow(query, c.Name, c.CreatedAt, c.UpdatedAt).Scan(&c.ID); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	if _, err = tx.Exec(`INSERT INTO course_member (course_id, user_id) VALUES ($1, $2)`, c.ID, creator.ID); err != nil {
		return course.Course{}, errors.Wrap(err, "enrolling course creator")
	}
	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "committing transaction")
	}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(id int) (course.Course, error) {
	var row courseRow
	if err := repo.db.Get(&row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "finding course by ID")
	}
	return row.unpack(), nil
}

func (repo *courseRepository) QueryCoursesByMember(username string) ([]course.Course, error) {
	var rows []courseRow
	query := `SELECT c.* FROM course c
		JOIN course_member cm ON cm.course_id = c.id
		JOIN "user" u ON u.id = cm.user_id
		WHERE u.username = $1 ORDER BY c.id`
	if err := repo.db.Select(&rows, query, username); err != nil {
		return nil, errors.Wrap(err, "querying courses by member")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unpack())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseMembers(courseID int) ([]user.User, error) {
	if _, err := repo.GetCourseByID(courseID); err != nil {
		return nil, err
	}
	var rows []userRow
	query := `SELECT u.* FROM "user" u
		JOIN course_member cm ON cm.user_id = u.id
		WHERE cm.course_id = $1 ORDER BY u.id`
	if err := repo.db.Select(&rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course members")
	}
	return unpackUsers(rows), nil
}

func (repo *courseRepository) AddCourseMembers(courseID int, userIDs ...int) error {
	if _, err := repo.GetCourseByID(courseID); err != nil {
		return err
	}
	query := `INSERT INTO course_member (course_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, id := range userIDs {
		if _, err := repo.db.Exec(query, courseID, id); err != nil {
			return errors.Wrap(err, "enrolling course member")
		}
	}
	return nil
}

func (repo *courseRepository) CreateExercise(ex course.Exercise) (course.Exercise, error) {
	query := `INSERT INTO exercise (course_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.QueryRow(query, ex.CourseID, ex.Name, ex.CreatedAt, ex.UpdatedAt).Scan(&ex.ID); err != nil {
		return course.Exercise{}, errors.Wrap(err, "inserting exercise")
	}
	return ex, nil
}

func (repo *courseRepository) GetExerciseByID(id int) (course.Exercise, error) {
	var row exerciseRow
	if err := repo.db.Get(&row, `SELECT * FROM exercise WHERE id = $1`, id); err != nil {
		return course.Exercise{}, trapNoRows(err, course.ErrExerciseNotFound, "finding exercise by ID")
	}
	return row.unpack(), nil
}

func (repo *courseRepository) QueryExercisesByCourse(courseID int) ([]course.Exercise, error) {
	var rows []exerciseRow
	if err := repo.db.Select(&rows, `SELECT * FROM exercise WHERE course_id = $1 ORDER BY id`, courseID); err != nil {
		return nil, errors.Wrap(err, "querying exercises")
	}
	exercises := make([]course.Exercise, 0, len(rows))
	for _, r := range rows {
		exercises = append(exercises, r.unpack())
	}
	return exercises, nil
}

func (repo *courseRepository) CreateFile(f course.File) (course.File, error) {
	ownerID := null.NewInt64(0, false)
	if f.OwnerID != nil {
		ownerID = null.Int64From(int64(*f.OwnerID))
	}
	query := `INSERT INTO exercise_file (exercise_id, owner_id, name, path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := repo.db.QueryRow(query, f.ExerciseID, ownerID, f.Name, f.Path, f.CreatedAt, f.UpdatedAt).Scan(&f.ID); err != nil {
		return course.File{}, errors.Wrap(err, "inserting exercise file")
	}
	return f, nil
}

func (repo *courseRepository) GetFileByID(id int) (course.File, error) {
	var row fileRow
	if err := repo.db.Get(&row, `SELECT * FROM exercise_file WHERE id = $1`, id); err != nil {
		return course.File{}, trapNoRows(err, course.ErrFileNotFound, "finding file by ID")
	}
	return row.unpack(), nil
}

func (repo *courseRepository) QueryFilesByExercise(exerciseID int, ownerID *int) ([]course.File, error) {
	var rows []fileRow
	var err error
	if ownerID == nil {
		err = repo.db.Select(&rows, `SELECT * FROM exercise_file WHERE exercise_id = $1 AND owner_id IS NULL ORDER BY id`, exerciseID)
	} else {
		err = repo.db.Select(&rows, `SELECT * FROM exercise_file WHERE exercise_id = $1 AND owner_id = $2 ORDER BY id`, exerciseID, *ownerID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying exercise files")
	}
	files := make([]course.File, 0, len(rows))
	for _, r := range rows {
		files = append(files, r.unpack())
	}
	return files, nil
}

func (repo *courseRepository) CreateExerciseUserInfo(eui course.ExerciseUserInfo) (course.ExerciseUserInfo, error) {
	query := `INSERT INTO exercise_user_info (exercise_id, user_id, finished, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (exercise_id, user_id) DO UPDATE SET updated_at = exercise_user_info.updated_at
		RETURNING id`
	if err := repo.db.QueryRow(query, eui.ExerciseID, eui.UserID, eui.Finished, eui.CreatedAt, eui.UpdatedAt).Scan(&eui.ID); err != nil {
		return course.ExerciseUserInfo{}, errors.Wrap(err, "inserting exercise user info")
	}
	return eui, nil
}

func (repo *courseRepository) GetExerciseUserInfo(exerciseID int, username string) (course.ExerciseUserInfo, error) {
	var row euiRow
	query := euiSelect + ` WHERE eui.exercise_id = $1 AND u.username = $2`
	if err := repo.db.Get(&row, query, exerciseID, username); err != nil {
		return course.ExerciseUserInfo{}, trapNoRows(err, course.ErrInfoNotFound, "finding exercise user info")
	}
	return row.unpack(), nil
}

func (repo *courseRepository) UpdateExerciseUserInfo(eui course.ExerciseUserInfo) (course.ExerciseUserInfo, error) {
	query := `UPDATE exercise_user_info SET finished = $1, updated_at = $2 WHERE id = $3`
	res, err := repo.db.Exec(query, eui.Finished, eui.UpdatedAt, eui.ID)
	if err != nil {
		return course.ExerciseUserInfo{}, errors.Wrap(err, "updating exercise user info")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ExerciseUserInfo{}, course.ErrInfoNotFound
	}
	return eui, nil
}

func (repo *courseRepository) QueryExerciseUserInfosByExercise(exerciseID int) ([]course.ExerciseUserInfo, error) {
	var rows []euiRow
	query := euiSelect + ` WHERE eui.exercise_id = $1 ORDER BY eui.id`
	if err := repo.db.Select(&rows, query, exerciseID); err != nil {
		return nil, errors.Wrap(err, "querying exercise user infos")
	}
	euis := make([]course.ExerciseUserInfo, 0, len(rows))
	for _, r := range rows {
		euis = append(euis, r.unpack())
	}
	return euis, nil
}

func (repo *courseRepository) CreateCommentThread(th course.CommentThread) (course.CommentThread, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return course.CommentThread{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO comment_thread (file_id, line, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err = tx.QueryRow(query, th.FileID, th.Line, th.CreatedAt, th.UpdatedAt).Scan(&th.ID); err != nil {
		return course.CommentThread{}, errors.Wrap(err, "inserting comment thread")
	}

	cQuery := `INSERT INTO comment (thread_id, author, body, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for i := range th.Comments {
		th.Comments[i].ThreadID = th.ID
		c := th.Comments[i]
		if err = tx.QueryRow(cQuery, c.ThreadID, c.Author, c.Body, c.CreatedAt, c.UpdatedAt).Scan(&th.Comments[i].ID); err != nil {
			return course.CommentThread{}, errors.Wrap(err, "inserting comment")
		}
	}

	if err = tx.Commit(); err != nil {
		return course.CommentThread{}, errors.Wrap(err, "committing transaction")
	}
	return th, nil
}

func (repo *courseRepository) QueryCommentThreadsByFile(fileID int) ([]course.CommentThread, error) {
	var rows []threadRow
	if err := repo.db.Select(&rows, `SELECT * FROM comment_thread WHERE file_id = $1 ORDER BY id`, fileID); err != nil {
		return nil, errors.Wrap(err, "querying comment threads")
	}

	threads := make([]course.CommentThread, 0, len(rows))
	for _, r := range rows {
		th := r.unpack()

		var cRows []commentRow
		if err := repo.db.Select(&cRows, `SELECT * FROM comment WHERE thread_id = $1 ORDER BY id`, th.ID); err != nil {
			return nil, errors.Wrap(err, "querying comments")
		}
		for _, cr := range cRows {
			th.Comments = append(th.Comments, cr.unpack())
		}
		threads = append(threads, th)
	}
	return threads, nil
}
