package env

import (
	"os"
	"strings"
)

func GetEnv(key string) string {
	return os.Getenv(key)
}

func GetRunEnv() string {
	if e := strings.ToLower(os.Getenv(BalancerEnv)); e != "" {
		return e
	}
	return "testing"
}

func GetNacosEnv() (string, string, string, string, string, string) {
	return os.Getenv(BalancerNacosServerPath), os.Getenv(BalancerNacosNamespace), os.Getenv(BalancerNacosAccess),
		os.Getenv(BalancerNacosSecret), os.Getenv(BalancerNacosUsername), os.Getenv(BalancerNacosPassword)
}

func GetEtcdEnv() (string, string, string, string) {
	return os.Getenv(BalancerEtcdEndpoints), os.Getenv(BalancerEtcdUsername),
		os.Getenv(BalancerEtcdPassword), os.Getenv(BalancerEtcdDialTimeout)
}
