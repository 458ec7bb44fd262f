package challenge

// SeedCatalog returns the fixed set of AWS CLI challenges loaded at startup.
// Seeding is idempotent: definitions whose name is already present are left
// untouched, so point values and patterns are never overwritten.
func SeedCatalog() []Definition {
	return []Definition{
		{
			Name:            "Launch an EC2 instance",
			Description:     "Use the AWS CLI to launch an EC2 instance.",
			SolutionPattern: "aws ec2 run-instances",
			Points:          DefaultPoints,
		},
		{
			Name:            "List S3 buckets",
			Description:     "List all S3 buckets in your account.",
			SolutionPattern: "aws s3 ls",
			Points:          DefaultPoints,
		},
		{
			Name:            "Create a VPC",
			Description:     "Use the AWS CLI to create a new VPC.",
			SolutionPattern: "aws ec2 create-vpc",
			Points:          DefaultPoints,
		},
		{
			Name:             "Create an RDS Instance",
			Description:      "Use the AWS CLI to create an RDS instance.",
			SolutionPattern:  "aws rds create-db-instance --db-instance-identifier",
			RequiresArgument: true,
			Points:           20,
		},
		{
			Name:             "Create a Security Group",
			Description:      "Use the AWS CLI to create a security group.",
			SolutionPattern:  "aws ec2 create-security-group --group-name",
			RequiresArgument: true,
			Points:           15,
		},
		{
			Name:             "Create an IAM User",
			Description:      "Use the AWS CLI to create a new IAM user.",
			SolutionPattern:  "aws iam create-user --user-name",
			RequiresArgument: true,
			Points:           15,
		},
	}
}

// HelpReference points a learner at documentation for a failed challenge.
type HelpReference struct {
	DocURL   string
	VideoURL string
}

// helpReferences maps challenge names to study material, shown alongside
// "incorrect" responses.
var helpReferences = map[string]HelpReference{
	"Launch an EC2 instance": {
		DocURL:   "https://docs.aws.amazon.com/cli/latest/reference/ec2/run-instances.html",
		VideoURL: "https://www.youtube.com/watch?v=crNyDkR3ulU",
	},
	"List S3 buckets": {
		DocURL:   "https://docs.aws.amazon.com/cli/latest/reference/s3/ls.html",
		VideoURL: "https://www.youtube.com/watch?v=RODg8GWKU2Q",
	},
	"Create a VPC": {
		DocURL:   "https://docs.aws.amazon.com/cli/latest/reference/ec2/create-vpc.html",
		VideoURL: "https://www.youtube.com/watch?v=ctwO-CMGkxg",
	},
	"Create an RDS Instance": {
		DocURL:   "https://docs.aws.amazon.com/cli/latest/reference/rds/create-db-instance.html",
		VideoURL: "https://www.youtube.com/watch?v=QtouOs4tzNk",
	},
	"Create a Security Group": {
		DocURL: "https://docs.aws.amazon.com/cli/latest/reference/ec2/create-security-group.html",
	},
	"Create an IAM User": {
		DocURL:   "https://docs.aws.amazon.com/cli/latest/reference/iam/create-user.html",
		VideoURL: "https://www.youtube.com/watch?v=ZQMpSICUEcw",
	},
}

// defaultHelpReference is used for challenges without curated material.
var defaultHelpReference = HelpReference{
	DocURL: "https://aws.amazon.com/cli/",
}

// HelpFor returns study material for the named challenge.
func HelpFor(name string) HelpReference {
	if ref, ok := helpReferences[name]; ok {
		return ref
	}
	return defaultHelpReference
}
