package review

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
)

type MachineTestSuite struct {
	suite.Suite
}

func TestMachineSuite(t *testing.T) {
	suite.Run(t, new(MachineTestSuite))
}

func (s *MachineTestSuite) TestDepositTransitions() {
	testCases := []struct {
		from entities.DepositStatus
		to   entities.DepositStatus
		code types.ErrorCode
	}{
		{from: entities.DepositPending, to: entities.DepositApproved},
		{from: entities.DepositPending, to: entities.DepositDenied},
		{from: entities.DepositPending, to: entities.DepositCredited},
		{from: entities.DepositApproved, to: entities.DepositCredited},
		{from: entities.DepositDenied, to: entities.DepositCredited},
		{from: entities.DepositApproved, to: entities.DepositDenied, code: types.ErrAlreadyReviewed},
		{from: entities.DepositDenied, to: entities.DepositApproved, code: types.ErrAlreadyReviewed},
		{from: entities.DepositApproved, to: entities.DepositApproved, code: types.ErrAlreadyReviewed},
		{from: entities.DepositCredited, to: entities.DepositApproved, code: types.ErrAlreadyReviewed},
		{from: entities.DepositCredited, to: entities.DepositCredited, code: types.ErrAlreadyCredited},
	}

	for _, tc := range testCases {
		s.Run(string(tc.from)+"->"+string(tc.to), func() {
			err := DepositTransition(tc.from, tc.to)
			if tc.code == "" {
				s.NoError(err)
				return
			}
			s.True(types.IsLedgerError(err, tc.code), "got %v", err)
		})
	}
}

func (s *MachineTestSuite) TestPurchaseTransitions() {
	s.NoError(PurchaseTransition(entities.PurchasePendingOTP, entities.PurchaseOTPSent))
	s.NoError(PurchaseTransition(entities.PurchaseOTPSent, entities.PurchaseOTPSent))
	s.Error(PurchaseTransition(entities.PurchaseOTPSent, entities.PurchasePendingOTP))
}

func (s *MachineTestSuite) TestDecisionTarget() {
	status, err := Approve.Target()
	s.Require().NoError(err)
	s.Equal(entities.DepositApproved, status)

	status, err = Deny.Target()
	s.Require().NoError(err)
	s.Equal(entities.DepositDenied, status)

	_, err = Decision("maybe").Target()
	s.True(types.IsLedgerError(err, types.ErrInvalidArgument))
}

func (s *MachineTestSuite) TestTerminal() {
	s.True(IsTerminal(entities.DepositCredited))
	s.False(IsTerminal(entities.DepositDenied))
	s.False(IsTerminal(entities.DepositPending))
}
