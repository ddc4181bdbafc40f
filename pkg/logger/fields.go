package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldOperationID 一次记录变更的关联 ID
	FieldOperationID = "operationId"

	// FieldActorID 操作者 ID 字段
	FieldActorID = "actorId"

	// FieldAction 操作类型字段
	FieldAction = "action"

	// FieldKind 记录类型字段
	FieldKind = "kind"

	// FieldObjectID 记录 ID 字段
	FieldObjectID = "objectId"

	// FieldRevisionID 修订版本 ID 字段
	FieldRevisionID = "revisionId"

	// FieldInstitutionID 机构 ID 字段
	FieldInstitutionID = "institutionId"

	// FieldCourseID 课程 ID 字段
	FieldCourseID = "courseId"

	// FieldRole 角色字段
	FieldRole = "role"

	// FieldFields 字段列表
	FieldFields = "fields"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldError 错误信息字段
	FieldError = "error"
)
