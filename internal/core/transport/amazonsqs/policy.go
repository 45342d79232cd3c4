package amazonsqs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 队列访问策略的 JSON 模型
//
// 只建模授权检查与追加所需的字段；已有策略中的其他
// 字段原样保留（Principal 等用 RawMessage 透传）。

const policyVersion = "2012-10-17"

// actionSendMessage 授予的动作：向队列发送消息
const actionSendMessage = "sqs:SendMessage"

type queuePolicy struct {
	Version   string            `json:"Version"`
	ID        string            `json:"Id,omitempty"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string                           `json:"Sid,omitempty"`
	Effect    string                           `json:"Effect"`
	Principal json.RawMessage                  `json:"Principal,omitempty"`
	Action    stringList                       `json:"Action"`
	Resource  stringList                       `json:"Resource"`
	Condition map[string]map[string]stringList `json:"Condition,omitempty"`
}

// stringList 兼容"单个字符串或字符串数组"的策略字段
type stringList []string

// UnmarshalJSON 接受字符串或字符串数组
func (s *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// MarshalJSON 单元素时输出字符串，与 AWS 惯例一致
func (s stringList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

func (s stringList) contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// topicArnWildcard 返回主题 ARN 的通配资源模式
//
// 末段替换为通配符，使授权对主题重建后的新 ARN 依然有效。
func topicArnWildcard(topicARN string) string {
	i := strings.LastIndex(topicARN, ":")
	if i < 0 {
		return topicARN
	}
	return topicARN[:i] + ":*"
}

// allowsSendFrom 判断语句是否已授予该来源向该队列发送的权限
func (st *policyStatement) allowsSendFrom(queueARN, sourcePattern string) bool {
	if !strings.EqualFold(st.Effect, "Allow") {
		return false
	}
	if !st.Action.contains(actionSendMessage) {
		return false
	}
	if !st.Resource.contains(queueARN) {
		return false
	}
	for _, operands := range st.Condition {
		if sources, ok := operands["aws:SourceArn"]; ok && sources.contains(sourcePattern) {
			return true
		}
	}
	return false
}

// grantSendPermission 幂等地授予主题向队列发送的权限
//
// 已有语句覆盖该授权时不做任何修改（changed=false）；
// 否则追加恰好一条允许语句并返回更新后的策略 JSON。
func grantSendPermission(existingPolicy, queueARN, topicARN string) (changed bool, updated string, err error) {
	pattern := topicArnWildcard(topicARN)

	pol := queuePolicy{Version: policyVersion}
	if existingPolicy != "" {
		if err := json.Unmarshal([]byte(existingPolicy), &pol); err != nil {
			return false, "", fmt.Errorf("parse queue policy: %w", err)
		}
		if pol.Version == "" {
			pol.Version = policyVersion
		}
	}

	for i := range pol.Statement {
		if pol.Statement[i].allowsSendFrom(queueARN, pattern) {
			return false, "", nil
		}
	}

	pol.Statement = append(pol.Statement, policyStatement{
		Effect:    "Allow",
		Principal: json.RawMessage(`{"AWS":"*"}`),
		Action:    stringList{actionSendMessage},
		Resource:  stringList{queueARN},
		Condition: map[string]map[string]stringList{
			"ArnLike": {"aws:SourceArn": {pattern}},
		},
	})

	data, err := json.Marshal(pol)
	if err != nil {
		return false, "", fmt.Errorf("marshal queue policy: %w", err)
	}
	return true, string(data), nil
}
