package code

var (
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})

	ErrorServerInternal = NewError(500, lang{en: "Server internal error", zh_cn: "服务器内部错误"})

	// Record engine errors
	// 修订记录引擎错误
	ErrorNotFound              = NewError(404, lang{en: "Record not found", zh_cn: "记录不存在"})
	ErrorRevisionNotFound      = NewError(405, lang{en: "Revision not found", zh_cn: "修订版本不存在"})
	ErrorConflict              = NewError(409, lang{en: "Record changed concurrently", zh_cn: "记录已被并发修改"})
	ErrorInvalidField          = NewError(410, lang{en: "Invalid field value", zh_cn: "字段值无效"})
	ErrorValidation            = NewError(422, lang{en: "Invalid parameters", zh_cn: "参数校验失败"})
	ErrorStorage               = NewError(503, lang{en: "Storage operation failed", zh_cn: "存储操作失败"})
	ErrorRecordAlreadyInserted = NewError(423, lang{en: "Record already has an id", zh_cn: "记录已存在 ID"})
	ErrorRevisionMismatch      = NewError(425, lang{en: "Revision belongs to another record", zh_cn: "修订版本不属于该记录"})
	ErrorNotEnrolled           = NewError(427, lang{en: "User is not enrolled as student", zh_cn: "用户未以学生身份加入课程"})
	ErrorUnknownRole           = NewError(428, lang{en: "Unknown role", zh_cn: "未知角色"})
	ErrorUnknownKind           = NewError(429, lang{en: "Unknown record kind", zh_cn: "未知记录类型"})
)
