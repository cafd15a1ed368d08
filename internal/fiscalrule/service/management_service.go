package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	"github.com/smartcontab/fiscalcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  ruledomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  ruledomain.Repository
}

func NewService(p serviceParams) ruledomain.Service {
	return &Service{
		log:   p.Log.Named("fiscalrule.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req ruledomain.ListRequest) ([]ruledomain.Response, error) {
	filter := ruledomain.ListRequest{
		Pagination:    req.Pagination,
		Jurisdiction:  strings.ToUpper(strings.TrimSpace(req.Jurisdiction)),
		OperationCode: strings.TrimSpace(req.OperationCode),
		SortBy:        strings.TrimSpace(req.SortBy),
		OrderBy:       strings.TrimSpace(req.OrderBy),
	}

	rules, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]ruledomain.Response, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, toResponse(&rule))
	}

	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ruledomain.Response, error) {
	ruleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, ruledomain.ErrInvalidID
	}

	rule, err := s.repo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ruledomain.ErrNotFound
	}

	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, req ruledomain.CreateRequest) (*ruledomain.Response, error) {
	now := time.Now().UTC()
	record := &ruledomain.FiscalRule{
		ID:                 s.genID.Generate(),
		Jurisdiction:       strings.ToUpper(strings.TrimSpace(req.Jurisdiction)),
		OperationCode:      strings.TrimSpace(req.OperationCode),
		EntryCode:          strings.TrimSpace(req.EntryCode),
		ExitCodeInternal:   strings.TrimSpace(req.ExitCodeInternal),
		ExitCodeInterstate: strings.TrimSpace(req.ExitCodeInterstate),
		IcmsCST:            strings.TrimSpace(req.IcmsCST),
		IpiCST:             strings.TrimSpace(req.IpiCST),
		PisCST:             strings.TrimSpace(req.PisCST),
		CofinsCST:          strings.TrimSpace(req.CofinsCST),
		IcmsRate:           req.IcmsRate,
		IpiRate:            req.IpiRate,
		PisRate:            req.PisRate,
		CofinsRate:         req.CofinsRate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, ruledomain.ErrDuplicateRule
		}
		return nil, err
	}

	s.log.Info("fiscal rule created",
		zap.String("rule_id", record.ID.String()),
		zap.String("jurisdiction", record.Jurisdiction),
		zap.String("operation_code", record.OperationCode),
	)

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req ruledomain.UpdateRequest) (*ruledomain.Response, error) {
	ruleID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, ruledomain.ErrInvalidID
	}

	rule, err := s.repo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ruledomain.ErrNotFound
	}

	if req.EntryCode != nil {
		rule.EntryCode = strings.TrimSpace(*req.EntryCode)
	}
	if req.ExitCodeInternal != nil {
		rule.ExitCodeInternal = strings.TrimSpace(*req.ExitCodeInternal)
	}
	if req.ExitCodeInterstate != nil {
		rule.ExitCodeInterstate = strings.TrimSpace(*req.ExitCodeInterstate)
	}
	if req.IcmsCST != nil {
		rule.IcmsCST = strings.TrimSpace(*req.IcmsCST)
	}
	if req.IpiCST != nil {
		rule.IpiCST = strings.TrimSpace(*req.IpiCST)
	}
	if req.PisCST != nil {
		rule.PisCST = strings.TrimSpace(*req.PisCST)
	}
	if req.CofinsCST != nil {
		rule.CofinsCST = strings.TrimSpace(*req.CofinsCST)
	}
	if req.IcmsRate != nil {
		rule.IcmsRate = *req.IcmsRate
	}
	if req.IpiRate != nil {
		rule.IpiRate = *req.IpiRate
	}
	if req.PisRate != nil {
		rule.PisRate = *req.PisRate
	}
	if req.CofinsRate != nil {
		rule.CofinsRate = *req.CofinsRate
	}

	rule.UpdatedAt = time.Now().UTC()
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}

	resp := toResponse(rule)
	return &resp, nil
}

func toResponse(rule *ruledomain.FiscalRule) ruledomain.Response {
	return ruledomain.Response{
		ID:                 rule.ID.String(),
		Jurisdiction:       rule.Jurisdiction,
		OperationCode:      rule.OperationCode,
		EntryCode:          rule.EntryCode,
		ExitCodeInternal:   rule.ExitCodeInternal,
		ExitCodeInterstate: rule.ExitCodeInterstate,
		IcmsCST:            rule.IcmsCST,
		IpiCST:             rule.IpiCST,
		PisCST:             rule.PisCST,
		CofinsCST:          rule.CofinsCST,
		IcmsRate:           rule.IcmsRate,
		IpiRate:            rule.IpiRate,
		PisRate:            rule.PisRate,
		CofinsRate:         rule.CofinsRate,
		CreatedAt:          rule.CreatedAt,
		UpdatedAt:          rule.UpdatedAt,
	}
}
