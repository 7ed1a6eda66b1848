package dto

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// DateLayout 请假日期格式
const DateLayout = "2006-01-02"

// 课节取值范围
const (
	MinPeriod = 1
	MaxPeriod = 6
)

// RegisterValidators 向 gin 默认校验器注册自定义规则：
//
//	leavedate  YYYY-MM-DD 日历日期
//	period     课节 1..6
//	periodopt  课节 0..6，修改请求中 0 表示清除
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 校验引擎不是 validator/v10")
	}
	return registerRules(v)
}

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("leavedate", validateLeaveDate); err != nil {
		return fmt.Errorf("注册 leavedate 规则失败: %w", err)
	}
	if err := v.RegisterValidation("period", validatePeriod); err != nil {
		return fmt.Errorf("注册 period 规则失败: %w", err)
	}
	if err := v.RegisterValidation("periodopt", validatePeriodOrZero); err != nil {
		return fmt.Errorf("注册 periodopt 规则失败: %w", err)
	}
	return nil
}

func validateLeaveDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

func validatePeriod(fl validator.FieldLevel) bool {
	p := fl.Field().Int()
	return p >= MinPeriod && p <= MaxPeriod
}

func validatePeriodOrZero(fl validator.FieldLevel) bool {
	return fl.Field().Int() == 0 || validatePeriod(fl)
}
