package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/pkg/code"
	apperrors "github.com/haierkeys/edu-program-service/pkg/errors"
	"github.com/haierkeys/edu-program-service/pkg/logger"
	"github.com/haierkeys/edu-program-service/pkg/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor user performing an enlist or unenlist
// Actor 执行加入/移出操作的用户
type Actor struct {
	ID   int64
	Name string
}

// MembershipService defines the course membership business service interface
// MembershipService 定义课程成员业务服务接口
type MembershipService interface {
	// Sync writes the membership rows for the role list difference between prev and next
	// Sync 根据 prev 与 next 的角色列表差异写入成员行
	Sync(ctx context.Context, courseID int64, prev, next *domain.Course) error

	// OnCourseMutation keeps membership and article rows in step with course writes
	// OnCourseMutation 随课程写入维护成员行与文章关联
	OnCourseMutation(ctx context.Context, m *Mutation) error

	// EnlistUsers adds users to the role list of a course, returns how many were added
	// EnlistUsers 将用户加入课程角色，返回实际加入的数量
	EnlistUsers(ctx context.Context, courseID int64, userIDs []int64, role domain.Role, actor Actor, comment string) (int, error)

	// UnenlistUsers removes users from the role list of a course, returns how many were removed
	// UnenlistUsers 将用户移出课程角色，返回实际移出的数量
	UnenlistUsers(ctx context.Context, courseID int64, userIDs []int64, role domain.Role, actor Actor, comment string) (int, error)

	// ListMembers 获取课程成员行，role 为空时返回全部角色
	ListMembers(ctx context.Context, courseID int64, role domain.Role) ([]*domain.Membership, error)

	// AssociateArticle links a page edited by an enrolled student to the course
	// AssociateArticle 关联已加入课程的学生编辑的文章
	AssociateArticle(ctx context.Context, courseID, userID int64, pageTitle string) (*domain.CourseArticle, error)
}

// enlistParams validated input of EnlistUsers and UnenlistUsers
type enlistParams struct {
	CourseID int64   `validate:"gt=0"`
	UserIDs  []int64 `validate:"required,min=1,dive,gt=0"`
	Role     string  `validate:"required,oneof=student instructor online campus"`
}

type articleParams struct {
	CourseID  int64  `validate:"gt=0"`
	UserID    int64  `validate:"gt=0"`
	PageTitle string `validate:"required,max=255"`
}

// membershipService implementation of MembershipService interface
// membershipService 实现 MembershipService 接口
type membershipService struct {
	records     RecordService
	memberRepo  domain.MembershipRepository
	studentRepo domain.StudentRepository
	articleRepo domain.CourseArticleRepository
	events      domain.EventLogger
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewMembershipService creates MembershipService instance
// NewMembershipService 创建 MembershipService 实例
func NewMembershipService(
	records RecordService,
	memberRepo domain.MembershipRepository,
	studentRepo domain.StudentRepository,
	articleRepo domain.CourseArticleRepository,
	events domain.EventLogger,
	logger *zap.Logger,
) MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &membershipService{
		records:     records,
		memberRepo:  memberRepo,
		studentRepo: studentRepo,
		articleRepo: articleRepo,
		events:      events,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
	}
}

// Sync 同步成员行
func (s *membershipService) Sync(ctx context.Context, courseID int64, prev, next *domain.Course) error {
	joinedAt := s.now()
	for _, role := range domain.Roles {
		var before, after []int64
		if prev != nil {
			before = prev.Members(role)
		}
		if next != nil {
			after = next.Members(role)
		}

		added := util.Difference(after, before)
		removed := util.Difference(before, after)
		if len(added) == 0 && len(removed) == 0 {
			continue
		}

		rows := make([]*domain.Membership, 0, len(added))
		for _, uid := range added {
			rows = append(rows, &domain.Membership{CourseID: courseID, UserID: uid, Role: role, JoinedAt: joinedAt})
		}
		if err := s.memberRepo.Create(ctx, rows); err != nil {
			return apperrors.Storage(err)
		}
		if err := s.memberRepo.Delete(ctx, courseID, role, removed); err != nil {
			return apperrors.Storage(err)
		}

		s.logger.Debug("membership synced",
			zap.String(logger.FieldMethod, "membershipService.Sync"),
			zap.Int64(logger.FieldCourseID, courseID),
			zap.String(logger.FieldRole, string(role)),
			zap.Int64s("added", added),
			zap.Int64s("removed", removed))
	}
	return nil
}

// OnCourseMutation 课程写入钩子
func (s *membershipService) OnCourseMutation(ctx context.Context, m *Mutation) error {
	switch m.Action {
	case domain.ActionAdd, domain.ActionUndelete:
		next, ok := m.Next.(*domain.Course)
		if !ok {
			return nil
		}
		return s.Sync(ctx, next.ID, nil, next)

	case domain.ActionUpdate:
		if !m.ChangedAny(CourseRoleFields()...) {
			return nil
		}
		prev, _ := m.Prev.(*domain.Course)
		next, ok := m.Next.(*domain.Course)
		if !ok {
			return nil
		}
		return s.Sync(ctx, next.ID, prev, next)

	case domain.ActionRemove:
		prev, ok := m.Prev.(*domain.Course)
		if !ok {
			return nil
		}
		if err := s.memberRepo.DeleteByCourse(ctx, prev.ID); err != nil {
			return apperrors.Storage(err)
		}
		if err := s.articleRepo.DeleteByCourse(ctx, prev.ID); err != nil {
			return apperrors.Storage(err)
		}
	}
	return nil
}

// EnlistUsers 加入课程
func (s *membershipService) EnlistUsers(ctx context.Context, courseID int64, userIDs []int64, role domain.Role, actor Actor, comment string) (int, error) {
	return s.changeMembers(ctx, courseID, userIDs, role, actor, comment, true)
}

// UnenlistUsers 移出课程
func (s *membershipService) UnenlistUsers(ctx context.Context, courseID int64, userIDs []int64, role domain.Role, actor Actor, comment string) (int, error) {
	return s.changeMembers(ctx, courseID, userIDs, role, actor, comment, false)
}

func (s *membershipService) changeMembers(ctx context.Context, courseID int64, userIDs []int64, role domain.Role, actor Actor, comment string, add bool) (int, error) {
	if err := s.validate.Struct(&enlistParams{CourseID: courseID, UserIDs: userIDs, Role: string(role)}); err != nil {
		return 0, validationError(err)
	}

	e, err := s.records.Load(ctx, domain.KindCourse, courseID, domain.ReadAuthoritative)
	if err != nil {
		return 0, err
	}
	course := e.(*domain.Course)

	current := course.Members(role)
	requested := domain.NormalizeIDs(userIDs)
	var affected []int64
	if add {
		affected = util.Difference(requested, current)
		course.SetMembers(role, util.Union(current, affected))
	} else {
		affected = util.Difference(requested, util.Difference(requested, current))
		course.SetMembers(role, util.Difference(current, affected))
	}
	if len(affected) == 0 {
		return 0, nil
	}

	o := buildOptions("", []Option{WithActor(actor.ID, actor.Name), WithComment(comment)})
	if _, err := s.records.Save(ctx, course, o.forward(WithoutLogging())...); err != nil {
		return 0, err
	}

	if err := s.logEnlist(ctx, course, role, affected, actor, comment, add, o.operationID); err != nil {
		return len(affected), err
	}

	if role == domain.RoleStudent {
		if add {
			err = s.touchStudents(ctx, course.ID, affected)
		} else {
			err = apperrors.Storage(s.articleRepo.DeleteByCourseUsers(ctx, course.ID, affected))
		}
		if err != nil {
			return len(affected), err
		}
	}

	s.logger.Info("course members changed",
		zap.String(logger.FieldMethod, "membershipService.changeMembers"),
		zap.String(logger.FieldOperationID, o.operationID),
		zap.Int64(logger.FieldCourseID, course.ID),
		zap.String(logger.FieldRole, string(role)),
		zap.Bool("add", add),
		zap.Int64s("users", affected))
	return len(affected), nil
}

func (s *membershipService) logEnlist(ctx context.Context, course *domain.Course, role domain.Role, users []int64, actor Actor, comment string, add bool, operationID string) error {
	subtype := domain.SubtypeRemove
	if add {
		subtype = domain.SubtypeAdd
	}
	if len(users) == 1 && actor.ID != 0 && users[0] == actor.ID {
		subtype = "self-" + subtype
	}

	err := s.events.LogEvent(ctx, &domain.LogEvent{
		OperationID: operationID,
		Type:        string(role),
		Subtype:     subtype,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		Comment:     comment,
		Target:      domain.TargetRef(domain.KindCourse, course.ID),
		Params: map[string]any{
			"course": course.Title,
			"users":  users,
		},
	})
	return apperrors.Storage(err)
}

// touchStudents records enrollment activity of newly added students
// touchStudents 更新新加入学生的活动记录
func (s *membershipService) touchStudents(ctx context.Context, courseID int64, userIDs []int64) error {
	now := s.now()
	for _, uid := range userIDs {
		st, err := s.studentRepo.GetByUserID(ctx, uid)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Storage(err)
			}
			st = &domain.Student{UserID: uid, FirstEnrollAt: now, FirstCourseID: courseID}
		}
		st.LastEnrollAt = now
		st.LastCourseID = courseID
		st.LastActiveAt = now
		if _, err := s.studentRepo.Save(ctx, st); err != nil {
			return apperrors.Storage(err)
		}
	}
	return nil
}

// ListMembers 获取课程成员
func (s *membershipService) ListMembers(ctx context.Context, courseID int64, role domain.Role) ([]*domain.Membership, error) {
	if role != "" {
		if _, err := domain.ParseRole(string(role)); err != nil {
			return nil, code.ErrorUnknownRole.WithDetails(string(role))
		}
	}
	list, err := s.memberRepo.ListByCourse(ctx, courseID, role, domain.ReadReplica)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return list, nil
}

// AssociateArticle 关联文章
func (s *membershipService) AssociateArticle(ctx context.Context, courseID, userID int64, pageTitle string) (*domain.CourseArticle, error) {
	pageTitle = strings.TrimSpace(pageTitle)
	if err := s.validate.Struct(&articleParams{CourseID: courseID, UserID: userID, PageTitle: pageTitle}); err != nil {
		return nil, validationError(err)
	}

	students, err := s.memberRepo.ListByCourse(ctx, courseID, domain.RoleStudent, domain.ReadAuthoritative)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	enrolled := false
	for _, m := range students {
		if m.UserID == userID {
			enrolled = true
			break
		}
	}
	if !enrolled {
		return nil, code.ErrorNotEnrolled.WithDetails(fmt.Sprintf("user %d in course %d", userID, courseID))
	}

	article, err := s.articleRepo.Create(ctx, &domain.CourseArticle{
		CourseID:  courseID,
		UserID:    userID,
		PageTitle: pageTitle,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return article, nil
}

// CourseRoleFields returns the course fields backing role lists
// CourseRoleFields 返回角色列表对应的课程字段
func CourseRoleFields() []string {
	fields := make([]string, 0, len(domain.Roles))
	for _, r := range domain.Roles {
		fields = append(fields, domain.RoleField(r))
	}
	return fields
}

// validationError converts validator errors into a coded validation error
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return code.ErrorValidation.WithDetails(err.Error())
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return code.ErrorValidation.WithDetails(details...)
}
