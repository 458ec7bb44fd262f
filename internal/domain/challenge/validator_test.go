package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_PrefixMatch(t *testing.T) {
	vpc := &Challenge{
		ID:              "c1",
		Name:            "Create a VPC",
		SolutionPattern: "aws ec2 create-vpc",
		Points:          DefaultPoints,
	}

	tests := []struct {
		name      string
		submitted string
		want      MatchResult
	}{
		{"exact", "aws ec2 create-vpc", MatchCorrect},
		{"trailing arguments tolerated", "aws ec2 create-vpc --cidr-block 10.0.0.0/16", MatchCorrect},
		{"surrounding whitespace", "  aws ec2 create-vpc  ", MatchCorrect},
		{"case insensitive", "AWS EC2 Create-VPC", MatchCorrect},
		{"wrong service", "aws s3 create-vpc", MatchWrong},
		{"truncated", "aws ec2 create", MatchWrong},
		{"empty", "", MatchWrong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.submitted, vpc))
		})
	}
}

func TestValidate_RequiresArgument(t *testing.T) {
	iam := &Challenge{
		ID:               "c2",
		Name:             "Create an IAM User",
		SolutionPattern:  "aws iam create-user --user-name",
		RequiresArgument: true,
		Points:           DefaultPoints,
	}

	tests := []struct {
		name      string
		submitted string
		want      MatchResult
	}{
		{"argument supplied", "aws iam create-user --user-name alice", MatchCorrect},
		{"bare flag pasted", "aws iam create-user --user-name", MatchIncomplete},
		{"bare flag with whitespace", "aws iam create-user --user-name   ", MatchIncomplete},
		{"prefix mismatch stays wrong", "aws iam createuser", MatchWrong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.submitted, iam))
		})
	}
}

func TestMatchResult_String(t *testing.T) {
	assert.Equal(t, "correct", MatchCorrect.String())
	assert.Equal(t, "incomplete", MatchIncomplete.String())
	assert.Equal(t, "wrong", MatchWrong.String())
}
