package api

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"dvhc-api/internal/division"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type unitRequest struct {
	Code        string            `json:"code" validate:"required,max=32,printascii"`
	ParentCode  *string           `json:"parentCode" validate:"omitempty,max=32,printascii"`
	Level       string            `json:"level" validate:"required,max=32"`
	Name        string            `json:"name" validate:"max=255"`
	EnglishName string            `json:"englishName" validate:"max=255"`
	FullName    string            `json:"fullName" validate:"max=255"`
	Decree      string            `json:"decree" validate:"max=255"`
	Attrs       map[string]string `json:"attrs" validate:"omitempty,max=64,dive,keys,max=64,endkeys,max=1024"`
}

func (r unitRequest) unit() division.Unit {
	u := division.Unit{
		Code:        r.Code,
		Level:       division.Level(r.Level),
		Name:        r.Name,
		EnglishName: r.EnglishName,
		FullName:    r.FullName,
		Decree:      r.Decree,
		Attrs:       r.Attrs,
	}
	if r.ParentCode != nil && strings.TrimSpace(*r.ParentCode) != "" {
		u.ParentCode = division.StrPtr(strings.TrimSpace(*r.ParentCode))
	}
	return u
}

type provinceRequest struct {
	Code        string            `json:"code" validate:"required,numeric,max=8"`
	Name        string            `json:"name" validate:"required,max=255"`
	EnglishName string            `json:"englishName" validate:"max=255"`
	FullName    string            `json:"fullName" validate:"max=255"`
	Decree      string            `json:"decree" validate:"max=255"`
	Attrs       map[string]string `json:"attrs" validate:"omitempty,max=64,dive,keys,max=64,endkeys,max=1024"`
}

func (r provinceRequest) province() division.Province {
	return division.Province{Code: r.Code, Name: r.Name, EnglishName: r.EnglishName, FullName: r.FullName, Decree: r.Decree, Attrs: r.Attrs}
}

type communeRequest struct {
	Code         string            `json:"code" validate:"required,numeric,max=8"`
	ProvinceCode string            `json:"provinceCode" validate:"required,numeric,max=8"`
	Name         string            `json:"name" validate:"required,max=255"`
	EnglishName  string            `json:"englishName" validate:"max=255"`
	FullName     string            `json:"fullName" validate:"max=255"`
	Kind         string            `json:"kind" validate:"max=32"`
	Decree       string            `json:"decree" validate:"max=255"`
	Attrs        map[string]string `json:"attrs" validate:"omitempty,max=64,dive,keys,max=64,endkeys,max=1024"`
}

func (r communeRequest) commune() division.Commune {
	return division.Commune{
		Code: r.Code, ProvinceCode: r.ProvinceCode, Name: r.Name, EnglishName: r.EnglishName,
		FullName: r.FullName, Kind: r.Kind, Decree: r.Decree, Attrs: r.Attrs,
	}
}

// errCodeMismatch：PUT 路径中的 code 与请求体不一致
var errCodeMismatch = errors.New("code in body does not match path")

// decodeRequest：解析请求体并校验；pathCode 非空时以路径为准
// 失败时已写出 400 响应，调用方直接返回
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, code *string, pathCode string) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed json body")
		return false
	}
	*code = strings.TrimSpace(*code)
	if pathCode != "" {
		if *code != "" && *code != pathCode {
			writeError(w, http.StatusBadRequest, "invalid_request", errCodeMismatch.Error())
			return false
		}
		*code = pathCode
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return false
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: "validation failed", Fields: fields})
		return false
	}
	return true
}
